package pheromone

// Update runs one tick of decay and spread on every layer.
// Trail decays in place but never spreads, so carried trails stay narrow lines.
func (f *Field) Update() {
	for _, l := range f.layers {
		decay(l)
		if l.Channel != Trail {
			f.spread(l)
		}
	}
}

// decay applies grid *= (1 - rate).
func decay(l *Layer) {
	keep := 1 - l.Rates.Decay
	if keep == 1 {
		return
	}
	for i := range l.Grid {
		l.Grid[i] *= keep
	}
}

// spread gives Spread of each cell's value in equal quarters to its four
// cardinal neighbours. Quarters that would leave the grid are dropped.
func (f *Field) spread(l *Layer) {
	rate := l.Rates.Spread
	if rate <= 0 {
		return
	}

	w, h := f.Width, f.Height
	next := f.scratch
	for i, v := range l.Grid {
		next[i] = v * (1 - rate)
	}

	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			share := l.Grid[row+x] * rate / 4
			if share == 0 {
				continue
			}
			if x > 0 {
				next[row+x-1] += share
			}
			if x < w-1 {
				next[row+x+1] += share
			}
			if y > 0 {
				next[row-w+x] += share
			}
			if y < h-1 {
				next[row+w+x] += share
			}
		}
	}

	// Swap buffers; the old grid becomes scratch for the next layer.
	l.Grid, f.scratch = next, l.Grid
}
