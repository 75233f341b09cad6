// Package settlement prices, dedups and scores betting selections across the
// supported strategies.
package settlement

import (
	"fmt"
	"strings"

	"github.com/yourusername/racing-form/internal/models"
)

// Strategy is a closed set of betting strategies
type Strategy int

const (
	Unknown Strategy = iota
	BackMidPrice
	BackOutsider
	BackOutsiderPlace
	LayFavourite
	LayMidPricePlace
	DutchBack
	DutchLay
)

var strategyNames = map[Strategy]string{
	Unknown:           "unknown",
	BackMidPrice:      "back_mid_price",
	BackOutsider:      "back_outsider",
	BackOutsiderPlace: "back_outsider_place",
	LayFavourite:      "lay_favourite",
	LayMidPricePlace:  "lay_mid_price_place",
	DutchBack:         "dutch_back",
	DutchLay:          "dutch_lay",
}

var strategiesByName = func() map[string]Strategy {
	m := make(map[string]Strategy, len(strategyNames))
	for s, name := range strategyNames {
		if s != Unknown {
			m[name] = s
		}
	}
	return m
}()

// Strategies returns every known strategy in declaration order
func Strategies() []Strategy {
	return []Strategy{BackMidPrice, BackOutsider, BackOutsiderPlace, LayFavourite, LayMidPricePlace, DutchBack, DutchLay}
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return strategyNames[Unknown]
}

// ParseStrategy matches a bet type tag case-insensitively. Unrecognised tags
// return Unknown with ErrUnknownStrategy.
func ParseStrategy(tag string) (Strategy, error) {
	if s, ok := strategiesByName[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return s, nil
	}
	return Unknown, fmt.Errorf("%w: %q", models.ErrUnknownStrategy, tag)
}

// IsDutch reports whether the strategy pools odds across a race
func (s Strategy) IsDutch() bool {
	return s == DutchBack || s == DutchLay
}

// IsLay reports whether the strategy sells the outcome
func (s Strategy) IsLay() bool {
	return s == LayFavourite || s == LayMidPricePlace || s == DutchLay
}

// IsBack reports whether the strategy buys the outcome
func (s Strategy) IsBack() bool {
	return s == BackMidPrice || s == BackOutsider || s == BackOutsiderPlace || s == DutchBack
}

// Outcome is a selection's realized result
type Outcome struct {
	Won    bool
	Placed bool
}

// placeTermsRunners is the field size from which the first three place
const placeTermsRunners = 8

// ClassifyOutcome derives win and place from the finishing position and
// field size: top two place in fields under eight, top three otherwise.
func ClassifyOutcome(finishingPosition string, runners int) Outcome {
	pos := (&models.PerformanceRow{FinishingPosition: finishingPosition}).Position()
	places := 2
	if runners >= placeTermsRunners {
		places = 3
	}
	return Outcome{
		Won:    pos == 1,
		Placed: pos >= 1 && pos <= places,
	}
}
