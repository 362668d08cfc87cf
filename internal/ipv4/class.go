package ipv4

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Class is a classful network class, A through E
type Class string

const (
	ClassA Class = "A"
	ClassB Class = "B"
	ClassC Class = "C"
	ClassD Class = "D"
	ClassE Class = "E"
	// ClassRandom asks Generate to pick one of A-E
	ClassRandom Class = "R"
)

var classes = []Class{ClassA, ClassB, ClassC, ClassD, ClassE}

type octetRange struct{ lo, hi int }

var classRanges = map[Class]octetRange{
	ClassA: {0, 127},
	ClassB: {128, 191},
	ClassC: {192, 223},
	ClassD: {224, 239},
	ClassE: {240, 255},
}

// ParseClass accepts a single class letter, case-insensitive.
// An empty string means ClassRandom.
func ParseClass(s string) (Class, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return ClassRandom, nil
	}
	c := Class(s)
	if c == ClassRandom {
		return c, nil
	}
	if _, ok := classRanges[c]; !ok {
		return "", fmt.Errorf("unknown address class %q", s)
	}
	return c, nil
}

// ClassOf returns the class of addr by its first octet
func ClassOf(addr Address) Class {
	first := int(addr[0])
	for _, c := range classes {
		r := classRanges[c]
		if first >= r.lo && first <= r.hi {
			return c
		}
	}
	return ClassE
}

// Generate returns a random address in class c.
// ClassRandom, or any class it does not know, draws the class first.
func Generate(c Class, rng *rand.Rand) Address {
	r, ok := classRanges[c]
	if !ok {
		r = classRanges[classes[rng.IntN(len(classes))]]
	}

	return Address{
		byte(r.lo + rng.IntN(r.hi-r.lo+1)),
		byte(rng.IntN(256)),
		byte(rng.IntN(256)),
		byte(rng.IntN(256)),
	}
}
