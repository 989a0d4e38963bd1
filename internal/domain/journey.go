package domain

import "time"

// UserJourney summarizes every touchpoint of a single user.
//
// ChannelSeq always starts with StateStart and ends with StateConversion when
// Approved is true, StateNull otherwise. Between the sentinels it holds one
// channel per touchpoint ordered by step, so len(ChannelSeq) == NTouchpoints+2.
type UserJourney struct {
	UserID       string
	DateStart    time.Time
	DateEnd      time.Time
	DaysInFunnel int
	Approved     bool
	MaxStep      int
	NTouchpoints int
	NChannels    int
	ChannelSeq   []string
}

// Interior returns the touchpoint channels without the sentinels
func (j UserJourney) Interior() []string {
	if len(j.ChannelSeq) < 2 {
		return nil
	}
	return j.ChannelSeq[1 : len(j.ChannelSeq)-1]
}

// Terminal returns the absorbing state that closes the journey
func (j UserJourney) Terminal() string {
	if j.Approved {
		return StateConversion
	}
	return StateNull
}
