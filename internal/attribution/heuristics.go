package attribution

import "github.com/BarkinBalci/channel-attribution-service/internal/domain"

// Position-based budget: first touch, last touch, and everything in between
const (
	firstTouchShare = 0.4
	lastTouchShare  = 0.4
	middleShare     = 0.2
)

// FirstTouchCredits gives the whole conversion to the first channel touched
func FirstTouchCredits(j domain.UserJourney) map[string]float64 {
	interior := j.Interior()
	if len(interior) == 0 {
		return map[string]float64{}
	}
	return map[string]float64{interior[0]: 1.0}
}

// LastTouchCredits gives the whole conversion to the last channel touched
func LastTouchCredits(j domain.UserJourney) map[string]float64 {
	interior := j.Interior()
	if len(interior) == 0 {
		return map[string]float64{}
	}
	return map[string]float64{interior[len(interior)-1]: 1.0}
}

// LinearCredits splits the conversion evenly across touchpoints, so a channel
// touched twice gets twice the credit of one touched once
func LinearCredits(j domain.UserJourney) map[string]float64 {
	credits := make(map[string]float64)
	if j.NTouchpoints == 0 {
		return credits
	}
	for _, channel := range j.Interior() {
		credits[channel] += 1.0 / float64(j.NTouchpoints)
	}
	return credits
}

// PositionBasedCredits applies the 40/20/40 U-shaped split.
//
// The first and last touches get 40% each. The middle 20% depends on k, the
// number of distinct channels: with k == 1 the single channel gets it all,
// with k == 2 each channel gets 10%, and with k > 2 it is split across the
// touches strictly between first and last in proportion to their frequency.
func PositionBasedCredits(j domain.UserJourney) map[string]float64 {
	interior := j.Interior()
	credits := make(map[string]float64)
	if len(interior) == 0 {
		return credits
	}

	distinct := make(map[string]struct{})
	for _, channel := range interior {
		distinct[channel] = struct{}{}
	}

	credits[interior[0]] += firstTouchShare
	credits[interior[len(interior)-1]] += lastTouchShare

	switch k := len(distinct); {
	case k == 1:
		credits[interior[0]] += middleShare
	case k == 2:
		for channel := range distinct {
			credits[channel] += middleShare / 2
		}
	default:
		// k > 2 implies at least three touchpoints, so m-2 > 0
		m := j.NTouchpoints
		for _, channel := range interior[1 : len(interior)-1] {
			credits[channel] += middleShare / float64(m-2)
		}
	}

	return credits
}
