package fragmenter

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// For now this is a magic number - we seem to save bytes when
// payload is 100 bytes or more.
const COMPRESS_THRESHOLD = 100

// Sets older than this are dropped by Clean.
const STALE_AFTER = 1 * time.Minute

// We never expect a frame to need more fragments than this.
const MAX_FRAGMENTS = 4096

var (
	ErrUnknownFragSet    = errors.New("unknown fragment set")
	ErrIncompleteFragSet = errors.New("incomplete fragment set")
	ErrBadFragment       = errors.New("bad fragment")
)

type fragSet struct {
	first, last   time.Time // Used for GC on stale fragments we've stored
	cnt, expected uint32
	frags         []*Fragment
}

func newFragSet(size uint32) *fragSet {
	t := time.Now()

	return &fragSet{
		first:    t,
		last:     t,
		expected: size,
		frags:    make([]*Fragment, size),
	}
}

func (f *fragSet) add(frag *Fragment) {
	f.last = time.Now()
	// Retransmitted fragments replace the copy we have.
	if f.frags[frag.This] == nil {
		f.cnt += 1
	}
	f.frags[frag.This] = frag
}

func (f *fragSet) complete() bool {
	return f.cnt == f.expected
}

type Fragger struct {
	id           uint32 // Increment for each new batch
	size         int    // How much data we can include in each fragment
	idMux, asMux sync.Mutex

	asmbl map[uint32]*fragSet
}

func (f *Fragger) getUniqueId() uint32 {
	f.idMux.Lock()
	defer f.idMux.Unlock()
	i := f.id
	f.id += 1
	return i
}

// New returns a Fragger producing fragments carrying at most size
// bytes of payload each.
func New(size int) *Fragger {
	return &Fragger{
		size:  max(size, 1),
		asmbl: make(map[uint32]*fragSet),
	}
}

func compress(buf []byte) ([]byte, error) {
	var gbuf bytes.Buffer
	gz := gzip.NewWriter(&gbuf)

	if _, err := gz.Write(buf); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return gbuf.Bytes(), nil
}

func decompress(buf []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	defer gz.Close()

	var obuf bytes.Buffer
	if _, err := io.Copy(&obuf, gz); err != nil {
		return nil, err
	}

	return obuf.Bytes(), nil
}

// CreateFragments splits buf into fragments sharing a new set id,
// compressing it first when it is large enough to benefit.
func (f *Fragger) CreateFragments(buf []byte) ([]*Fragment, error) {
	fcomp := len(buf) > COMPRESS_THRESHOLD

	var err error
	payload := buf
	if fcomp {
		payload, err = compress(buf)
		if err != nil {
			return nil, fmt.Errorf("couldn't compress payload: %w", err)
		}
	}

	frid := f.getUniqueId()
	total := max((len(payload)+f.size-1)/f.size, 1)
	if total > MAX_FRAGMENTS {
		return nil, fmt.Errorf("%d byte payload needs %d fragments, more than %d", len(payload), total, MAX_FRAGMENTS)
	}

	fragments := make([]*Fragment, total)
	for i := range total {
		s, e := i*f.size, min(i*f.size+f.size, len(payload))
		fragments[i] = &Fragment{
			ID:         frid,
			This:       uint32(i),
			Total:      uint32(total),
			Compressed: fcomp,
			Data:       payload[s:e],
		}
	}

	return fragments, nil
}

// Store accepts a fragment and returns a bool indicating whether we
// have all fragments to complete the set for the fragment's id.
// Fragments that don't fit the set they claim to belong to are
// dropped.
func (f *Fragger) Store(frag *Fragment) bool {
	if frag.Total == 0 || frag.Total > MAX_FRAGMENTS || frag.This >= frag.Total {
		slog.Debug("dropping bad fragment", "id", frag.ID, "this", frag.This, "total", frag.Total)
		return false
	}

	f.asMux.Lock()
	defer f.asMux.Unlock()

	fset, ok := f.asmbl[frag.ID]
	if !ok {
		fset = newFragSet(frag.Total)
		f.asmbl[frag.ID] = fset
	}
	if fset.expected != frag.Total {
		slog.Debug("dropping fragment with mismatched total", "id", frag.ID, "total", frag.Total, "expected", fset.expected)
		return false
	}

	fset.add(frag)

	return fset.complete()
}

// Assemble will consume a fragment set and uncompress it as required,
// returning the bytes of the fragments in the expected order. An
// error is returned if the id is unknown or incomplete or if the data
// is compressed and decompression fails.
func (f *Fragger) Assemble(id uint32) ([]byte, error) {
	f.asMux.Lock()
	defer f.asMux.Unlock()

	fset, ok := f.asmbl[id]
	if !ok {
		return nil, ErrUnknownFragSet
	}

	if !fset.complete() {
		return nil, ErrIncompleteFragSet
	}
	delete(f.asmbl, id)

	data := make([][]byte, fset.expected)
	for i, frag := range fset.frags {
		data[i] = frag.Data
	}

	d := slices.Concat(data...)
	if !fset.frags[0].Compressed {
		return d, nil
	}

	ret, err := decompress(d)
	if err != nil {
		return nil, fmt.Errorf("couldn't decompress set %d: %w", id, err)
	}
	return ret, nil
}

// Clean drops sets that have not seen a fragment recently.
func (f *Fragger) Clean() {
	f.asMux.Lock()
	defer f.asMux.Unlock()

	for id, fset := range f.asmbl {
		// If we haven't seen a full set in that interval,
		// discard the set.
		if time.Since(fset.last) > STALE_AFTER {
			slog.Debug("expiring old fragset", "id", id, "first", fset.first, "last", fset.last)
			delete(f.asmbl, id)
		}
	}
}

// Pending returns the number of incomplete sets held.
func (f *Fragger) Pending() int {
	f.asMux.Lock()
	defer f.asMux.Unlock()
	return len(f.asmbl)
}
