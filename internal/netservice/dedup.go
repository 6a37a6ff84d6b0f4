package netservice

// Deduplicator implements a sliding 256-packet window over uint16 packet
// ids, grounded directly on original_source/extension/network/
// PacketDeduplicator.{hpp,cpp}: bit 0 is the newest id seen, bit k is
// "newest_seen - k"; ids outside the window (either far older or, via
// unsigned wraparound, far newer) are treated as not-a-duplicate so the
// caller always falls through to accepting them.
type Deduplicator struct {
	initialized bool
	newestSeen  uint16
	window      [4]uint64 // 256 bits, word 0 holds bits [0,64)
}

// IsDuplicate reports whether id falls inside the window and is already
// marked seen.
func (d *Deduplicator) IsDuplicate(id uint16) bool {
	if !d.initialized {
		return false
	}
	relative := d.newestSeen - id // unsigned wraparound, as in the original
	if relative >= 256 {
		return false
	}
	return d.bit(uint(relative))
}

// AddPacket marks id seen, sliding the window forward if id is newer than
// everything seen so far.
func (d *Deduplicator) AddPacket(id uint16) {
	if !d.initialized {
		d.newestSeen = id
		d.setBit(0)
		d.initialized = true
		return
	}

	relative := d.newestSeen - id
	if relative > 32768 {
		shift := id - d.newestSeen
		d.shiftLeft(uint(shift))
		d.newestSeen = id
		d.setBit(0)
	} else if relative < 256 {
		d.setBit(uint(relative))
	}
}

func (d *Deduplicator) bit(i uint) bool {
	if i >= 256 {
		return false
	}
	return d.window[i/64]&(uint64(1)<<(i%64)) != 0
}

func (d *Deduplicator) setBit(i uint) {
	if i >= 256 {
		return
	}
	d.window[i/64] |= uint64(1) << (i % 64)
}

// shiftLeft shifts the whole 256-bit window left by n bits (n may exceed
// 256, in which case the window is simply cleared), mirroring
// std::bitset<256>::operator<<=.
func (d *Deduplicator) shiftLeft(n uint) {
	if n >= 256 {
		d.window = [4]uint64{}
		return
	}
	wordShift := n / 64
	bitShift := n % 64
	var out [4]uint64
	for i := 3; i >= 0; i-- {
		srcIdx := i - int(wordShift)
		if srcIdx < 0 {
			continue
		}
		var v uint64
		v = d.window[srcIdx] << bitShift
		if bitShift != 0 && srcIdx-1 >= 0 {
			v |= d.window[srcIdx-1] >> (64 - bitShift)
		}
		out[i] = v
	}
	d.window = out
}
