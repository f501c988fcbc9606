package fingerprint

// Peak is a spectral landmark: a cell that dominates its neighborhood and
// clears the amplitude floor.
type Peak struct {
	FreqBin   int     // frequency bin index
	TimeFrame int     // frame index in the spectrogram
	Amplitude float64 // value in dB
}

// cross is the minimal 4-connected structuring element (offsets in bin, frame).
// The peak neighborhood is this cross dilated radius times, i.e. the diamond
// |dBin|+|dFrame| <= radius. It is never materialised: applying a cross
// filter radius times is the same operator as one pass with the diamond.
var cross = [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

func validateDetector(minAmplitude float64, radius int) error {
	if minAmplitude < 0 {
		return configError("min_amplitude", minAmplitude, "must not be negative")
	}
	if radius < 1 {
		return configError("neighborhood_radius", radius, "must be at least 1")
	}
	return nil
}

// DetectPeaks returns the local maxima of spec whose amplitude is strictly
// greater than minAmplitude.
//
// A cell is a local maximum when it equals the largest value of its diamond
// neighborhood (ties included). Cells deep inside silent regions, where the
// whole neighborhood is 0.0, are removed; cells outside the matrix count as
// silent for that test.
//
// Peaks are returned in time-major order: frame ascending, then bin
// ascending. The order is part of the contract because the fingerprint
// generator pairs peaks by position.
func DetectPeaks(spec *Spectrogram, minAmplitude float64, radius int) ([]Peak, error) {
	if spec == nil {
		return nil, configError("spectrogram", nil, "must not be nil")
	}
	if err := validateDetector(minAmplitude, radius); err != nil {
		return nil, err
	}

	bins, frames := spec.Bins(), spec.Frames()
	values := spec.raw()

	neighborhoodMax := values
	for i := 0; i < radius; i++ {
		neighborhoodMax = dilate(neighborhoodMax, bins, frames)
	}

	background := make([]bool, len(values))
	for i, v := range values {
		background[i] = v == 0
	}
	for i := 0; i < radius; i++ {
		background = erode(background, bins, frames)
	}

	peaks := make([]Peak, 0)
	for t := 0; t < frames; t++ {
		for f := 0; f < bins; f++ {
			idx := f*frames + t
			v := values[idx]
			if v != neighborhoodMax[idx] || background[idx] {
				continue
			}
			if v > minAmplitude {
				peaks = append(peaks, Peak{FreqBin: f, TimeFrame: t, Amplitude: v})
			}
		}
	}
	return peaks, nil
}

// dilate is one grey-scale maximum filter pass with the cross. Neighbours
// outside the matrix are skipped.
func dilate(src []float64, rows, cols int) []float64 {
	dst := make([]float64, len(src))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m := src[r*cols+c]
			for _, d := range cross {
				rr, cc := r+d[0], c+d[1]
				if rr < 0 || rr >= rows || cc < 0 || cc >= cols {
					continue
				}
				if v := src[rr*cols+cc]; v > m {
					m = v
				}
			}
			dst[r*cols+c] = m
		}
	}
	return dst
}

// erode is one binary erosion pass with the cross. Neighbours outside the
// matrix count as set.
func erode(src []bool, rows, cols int) []bool {
	dst := make([]bool, len(src))
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			keep := src[r*cols+c]
			for _, d := range cross {
				if !keep {
					break
				}
				rr, cc := r+d[0], c+d[1]
				if rr < 0 || rr >= rows || cc < 0 || cc >= cols {
					continue
				}
				keep = src[rr*cols+cc]
			}
			dst[r*cols+c] = keep
		}
	}
	return dst
}
