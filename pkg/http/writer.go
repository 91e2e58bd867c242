package http

// writePump tracks transmission progress of the serialized request across an
// arbitrary number of partial writes. The request is two logical segments,
// header then body; transferred bytes are attributed to the header segment's
// outstanding bytes first and any remainder to the body. A fully transmitted
// segment drops out of the pending view.
type writePump struct {
	header []byte
	body   []byte

	sentHeader int
	sentBody   int
}

// pending returns the next segment remainder to submit, header before body,
// or nil when transmission is complete.
func (p *writePump) pending() []byte {
	if p.sentHeader < len(p.header) {
		return p.header[p.sentHeader:]
	}
	if p.sentBody < len(p.body) {
		return p.body[p.sentBody:]
	}
	return nil
}

// advance records n transmitted bytes, header segment first.
func (p *writePump) advance(n int) {
	if rem := len(p.header) - p.sentHeader; n > 0 && rem > 0 {
		c := rem
		if n < c {
			c = n
		}
		p.sentHeader += c
		n -= c
	}
	if n > 0 {
		p.sentBody += n
		if p.sentBody > len(p.body) {
			p.sentBody = len(p.body)
		}
	}
}

func (p *writePump) done() bool {
	return p.sentHeader >= len(p.header) && p.sentBody >= len(p.body)
}
