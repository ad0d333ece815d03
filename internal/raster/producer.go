package raster

import "sync"

type Producer interface {
	Produce(work chan *WorkUnit, wg *sync.WaitGroup, splats []splat)
}

type BandProducer struct {
	height     int
	bandHeight int
}

func NewBandProducer(height, bands int) *BandProducer {
	if bands < 1 {
		bands = 1
	}
	bandHeight := (height + bands - 1) / bands
	if bandHeight < 1 {
		bandHeight = 1
	}
	return &BandProducer{
		height:     height,
		bandHeight: bandHeight,
	}
}

// Buckets the splats by band and submits one WorkUnit per non empty band to
// the provided work channel. Closes the channel when all work is submitted.
func (p *BandProducer) Produce(work chan *WorkUnit, wg *sync.WaitGroup, splats []splat) {
	defer wg.Done()
	defer close(work)

	units := make([]*WorkUnit, (p.height+p.bandHeight-1)/p.bandHeight)
	for i := range units {
		minY := i * p.bandHeight
		units[i] = &WorkUnit{MinY: minY, MaxY: min(minY+p.bandHeight, p.height), splats: splats}
	}

	for index := range splats {
		s := &splats[index]
		first := max(s.y0, 0) / p.bandHeight
		last := min(s.y1-1, p.height-1) / p.bandHeight
		for i := first; i <= last; i++ {
			units[i].indexes = append(units[i].indexes, int32(index))
		}
	}

	for _, unit := range units {
		if len(unit.indexes) > 0 {
			work <- unit
		}
	}
}
