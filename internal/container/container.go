// Package container mounts a closed (or extendable) acquisition's segments
// and exposes per-object and per-file seekable readers that translate
// (object, offset) into chunk lookups, following decryption, decompression,
// and deduplication pointers on demand (§4.I).
package container

import (
	"fmt"
	"sort"

	"github.com/kenneth/zffcore/internal/segment"
	"github.com/kenneth/zffcore/internal/zfferr"
)

// chunkRoute is one entry of the container-wide routing table: the highest
// chunk number covered by a segment's chunk map run, and which segment
// holds it. A chunk's exact offset within that segment is resolved by
// segment.Reader.Chunk itself, so the container only needs to know which
// segment to ask.
type chunkRoute struct {
	highest       uint64
	segmentNumber uint64
}

// Container mounts every segment of one acquisition (§4.I "open every
// segment file, read its header and footer, locate the main footer").
type Container struct {
	dir  string
	stem string

	segments   map[uint64]*segment.Reader
	order      []uint64
	mainFooter *segment.MainFooter
	routes     []chunkRoute // sorted ascending by highest
}

// Open mounts every segment sharing stem in dir and locates the main footer
// from the highest-numbered segment, per the decided Open Question in
// DESIGN.md (the reader never tries to reconstruct a stale main footer left
// behind by an interrupted Extend).
func Open(dir, stem string) (*Container, error) {
	readers, err := segment.OpenAll(dir, stem)
	if err != nil {
		return nil, fmt.Errorf("container: %w", err)
	}

	last := readers[len(readers)-1]
	if last.MainFooter == nil {
		closeReaders(readers)
		return nil, fmt.Errorf("container: %s: %w", stem, zfferr.ErrMissingSegmentMainFooter)
	}

	segments := make(map[uint64]*segment.Reader, len(readers))
	order := make([]uint64, 0, len(readers))
	var routes []chunkRoute
	for _, r := range readers {
		segments[r.Header.SegmentNumber] = r
		order = append(order, r.Header.SegmentNumber)
		for highest := range r.Footer.ChunkMapTable {
			routes = append(routes, chunkRoute{highest: highest, segmentNumber: r.Header.SegmentNumber})
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	sort.Slice(routes, func(i, j int) bool { return routes[i].highest < routes[j].highest })

	return &Container{
		dir:        dir,
		stem:       stem,
		segments:   segments,
		order:      order,
		mainFooter: last.MainFooter,
		routes:     routes,
	}, nil
}

func closeReaders(readers []*segment.Reader) {
	for _, r := range readers {
		r.Close()
	}
}

// Close releases every mounted segment's file handle. It keeps going after
// the first error so a failure to close one segment doesn't leak the rest.
func (c *Container) Close() error {
	var firstErr error
	for _, n := range c.order {
		if err := c.segments[n].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NumberOfSegments reports how many segments this container spans.
func (c *Container) NumberOfSegments() uint64 {
	return c.mainFooter.NumberOfSegments
}

// DescriptionNotes returns the container-wide notes recorded on the main
// footer, if any.
func (c *Container) DescriptionNotes() string {
	return c.mainFooter.DescriptionNotes
}

// ObjectNumbers lists every object_number the main footer's header table
// knows about, ascending.
func (c *Container) ObjectNumbers() []uint64 {
	nums := make([]uint64, 0, len(c.mainFooter.ObjectHeaderSegments))
	for n := range c.mainFooter.ObjectHeaderSegments {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}

func (c *Container) segment(number uint64) (*segment.Reader, error) {
	r, ok := c.segments[number]
	if !ok {
		return nil, fmt.Errorf("container: segment %d not mounted: %w", number, zfferr.ErrMalformedSegment)
	}
	return r, nil
}

// resolveChunkSegment finds which mounted segment holds chunkNumber, via
// the container-wide routing table built at Open (§4.I "chunk_routing_table
// ... so any chunk number resolves in O(log M)").
func (c *Container) resolveChunkSegment(chunkNumber uint64) (*segment.Reader, error) {
	i := sort.Search(len(c.routes), func(i int) bool { return c.routes[i].highest >= chunkNumber })
	if i >= len(c.routes) {
		return nil, fmt.Errorf("container: chunk %d not covered by any mounted segment: %w", chunkNumber, zfferr.ErrMalformedSegment)
	}
	return c.segment(c.routes[i].segmentNumber)
}
