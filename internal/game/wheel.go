package game

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
)

// Wheel is the prize wheel. Every sector is equally likely.
type Wheel struct {
	Sectors []int64
	rand    io.Reader
}

// SpinOutcome is the selected sector.
type SpinOutcome struct {
	Prize int64 `json:"prize"`
	Index int   `json:"prize_index"`
}

// NewWheel creates a wheel over the given sector prizes.
func NewWheel(sectors []int64) (*Wheel, error) {
	if len(sectors) == 0 {
		return nil, errors.New("wheel needs at least one sector")
	}
	for _, s := range sectors {
		if s < 0 {
			return nil, errors.New("wheel sector prize must not be negative")
		}
	}
	return &Wheel{Sectors: append([]int64(nil), sectors...), rand: rand.Reader}, nil
}

// Spin picks a sector uniformly using a cryptographically secure source.
func (w *Wheel) Spin() (SpinOutcome, error) {
	n, err := rand.Int(w.rand, big.NewInt(int64(len(w.Sectors))))
	if err != nil {
		return SpinOutcome{}, err
	}
	i := int(n.Int64())
	return SpinOutcome{Prize: w.Sectors[i], Index: i}, nil
}
