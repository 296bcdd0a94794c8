// Package appimg reads the packed application image this kernel boots
// from: a small header naming how many ELF binaries are embedded and
// where each one starts, followed by the binaries themselves back to
// back. Grounded on the original kernel's link_app.S/loader.rs
// generated-header convention, and on the teacher kernel's
// kernel/chentry.go for the general shape of "read a packed image,
// hand back per-app byte slices."
package appimg

import (
	"encoding/binary"

	"rv6/internal/kerrors"
	"rv6/internal/layout"
)

// headerEntrySize is the encoded width of each uint64 header field.
const headerEntrySize = 8

// Parse decodes raw as a packed application image and returns one byte
// slice per embedded ELF binary, each an aliased sub-slice of raw (no
// copy). It rejects an image naming more than layout.MaxAppNum apps or
// whose offsets run off the end of raw or out of order.
func Parse(raw []byte) ([][]byte, error) {
	if len(raw) < headerEntrySize {
		return nil, kerrors.ErrBadImage
	}
	n := binary.LittleEndian.Uint64(raw[:headerEntrySize])
	if n > layout.MaxAppNum {
		return nil, kerrors.ErrBadImage
	}

	headerLen := headerEntrySize * (1 + n + 1)
	if uint64(len(raw)) < headerLen {
		return nil, kerrors.ErrBadImage
	}

	offsets := make([]uint64, n+1)
	for i := range offsets {
		start := headerEntrySize * (1 + uint64(i))
		offsets[i] = binary.LittleEndian.Uint64(raw[start : start+headerEntrySize])
	}

	apps := make([][]byte, n)
	for i := uint64(0); i < n; i++ {
		lo, hi := offsets[i], offsets[i+1]
		if lo > hi || hi > uint64(len(raw)) {
			return nil, kerrors.ErrBadImage
		}
		apps[i] = raw[lo:hi]
	}
	return apps, nil
}

// Build is Parse's inverse: it packs a list of whole ELF images into one
// blob in the format Parse reads. Offsets are absolute within the
// returned blob, counting the header itself.
func Build(apps [][]byte) ([]byte, error) {
	if uint64(len(apps)) > layout.MaxAppNum {
		return nil, kerrors.ErrBadImage
	}
	n := uint64(len(apps))
	headerLen := headerEntrySize * (1 + n + 1)

	offsets := make([]uint64, n+1)
	offsets[0] = headerLen
	for i, app := range apps {
		offsets[i+1] = offsets[i] + uint64(len(app))
	}

	out := make([]byte, offsets[n])
	binary.LittleEndian.PutUint64(out[:headerEntrySize], n)
	for i := range offsets {
		start := headerEntrySize * (1 + uint64(i))
		binary.LittleEndian.PutUint64(out[start:start+headerEntrySize], offsets[i])
	}
	for i, app := range apps {
		copy(out[offsets[i]:offsets[i+1]], app)
	}
	return out, nil
}
