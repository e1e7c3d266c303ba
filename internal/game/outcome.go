package game

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// OutcomeSource draws round results.
type OutcomeSource interface {
	Generate() (Result, error)
}

// CryptoOutcome draws a uniform digit from a cryptographically secure reader.
type CryptoOutcome struct {
	// Reader defaults to crypto/rand.Reader.
	Reader io.Reader
}

var ten = big.NewInt(10)

func (o CryptoOutcome) Generate() (Result, error) {
	r := o.Reader
	if r == nil {
		r = rand.Reader
	}

	n, err := rand.Int(r, ten)
	if err != nil {
		return Result{}, fmt.Errorf("draw outcome: %w", err)
	}
	return ResultFor(int(n.Int64())), nil
}

// ResultFor derives color and size from a drawn number.
func ResultFor(number int) Result {
	return Result{
		Number: number,
		Color:  ColorFor(number),
		Size:   SizeFor(number),
	}
}

func ColorFor(number int) Color {
	switch {
	case number == 0:
		return ColorRedViolet
	case number == 5:
		return ColorGreenViolet
	case number%2 == 1:
		return ColorGreen
	default:
		return ColorRed
	}
}

func SizeFor(number int) Size {
	if number >= 5 {
		return SizeBig
	}
	return SizeSmall
}
