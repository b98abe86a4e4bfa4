package battle

// moveRecord is one move that can still be undone.
type moveRecord struct {
	tag  int
	from *Hex
}

// moveHistory is the undo stack for the current move phase.
type moveHistory struct {
	records []moveRecord
}

func (h *moveHistory) push(r moveRecord) {
	h.records = append(h.records, r)
}

func (h *moveHistory) pop() (moveRecord, bool) {
	if len(h.records) == 0 {
		return moveRecord{}, false
	}
	r := h.records[len(h.records)-1]
	h.records = h.records[:len(h.records)-1]
	return r, true
}

// remove drops every record for one critter.
func (h *moveHistory) remove(tag int) {
	kept := h.records[:0]
	for _, r := range h.records {
		if r.tag != tag {
			kept = append(kept, r)
		}
	}
	h.records = kept
}

func (h *moveHistory) clear() {
	h.records = nil
}

func (h *moveHistory) len() int {
	return len(h.records)
}
