// Package xirr solves for the annualized internal rate of return of an
// irregular dated cash-flow sequence.
package xirr

import (
	"math"
	"time"
)

// Flow is one signed cash flow on a date. Deposits into the portfolio
// are positive, withdrawals negative.
type Flow struct {
	Date   time.Time
	Amount float64
}

const (
	maxIterations = 100
	tolerance     = 1e-7
	daysPerYear   = 365.0

	// Bisection bracket. Rates below -99.99%/yr or above 1000%/yr are
	// treated as non-convergence.
	rateLo = -0.9999
	rateHi = 10.0
)

// Compute solves for the rate r such that the net present value of the
// flow sequence (-startValue at startDate, each interim flow at its
// date, +endValue at endDate) is zero, and returns r as a percentage.
//
// Newton-Raphson runs first; if it diverges or leaves the bracket, a
// bisection pass over [rateLo, rateHi] takes over. Degenerate input
// (zero elapsed time, no value at either end, solver out of budget)
// returns 0 rather than NaN or an error.
func Compute(startDate time.Time, startValue float64, endDate time.Time, endValue float64, interim []Flow) float64 {
	if startDate.IsZero() || endDate.IsZero() || !endDate.After(startDate) {
		return 0
	}
	if startValue == 0 && len(interim) == 0 {
		return 0
	}

	flows := make([]Flow, 0, len(interim)+2)
	flows = append(flows, Flow{Date: startDate, Amount: -startValue})
	for _, f := range interim {
		if f.Date.IsZero() || f.Amount == 0 {
			continue
		}
		// Deposits are money put in, so they discount like the opening
		// value: a deposit-funded gain is not performance.
		flows = append(flows, Flow{Date: f.Date, Amount: -f.Amount})
	}
	flows = append(flows, Flow{Date: endDate, Amount: endValue})

	years := make([]float64, len(flows))
	for i, f := range flows {
		years[i] = f.Date.Sub(startDate).Hours() / 24 / daysPerYear
	}

	npv := func(rate float64) float64 {
		var v float64
		for i, f := range flows {
			v += f.Amount / math.Pow(1+rate, years[i])
		}
		return v
	}
	// Derivative of the NPV with respect to rate, for Newton steps.
	dnpv := func(rate float64) float64 {
		var v float64
		for i, f := range flows {
			if years[i] == 0 {
				continue
			}
			v -= f.Amount * years[i] / math.Pow(1+rate, years[i]+1)
		}
		return v
	}

	if rate, ok := newton(npv, dnpv); ok {
		return rate * 100
	}
	if rate, ok := bisect(npv); ok {
		return rate * 100
	}
	return 0
}

func newton(npv, dnpv func(float64) float64) (float64, bool) {
	rate := 0.1
	for i := 0; i < maxIterations; i++ {
		v := npv(rate)
		if math.Abs(v) < tolerance {
			return rate, true
		}
		d := dnpv(rate)
		if d == 0 || math.IsNaN(d) || math.IsInf(d, 0) {
			return 0, false
		}
		next := rate - v/d
		if math.IsNaN(next) || next <= rateLo || next >= rateHi {
			return 0, false
		}
		if math.Abs(next-rate) < tolerance {
			return next, true
		}
		rate = next
	}
	return 0, false
}

func bisect(npv func(float64) float64) (float64, bool) {
	lo, hi := rateLo, rateHi
	flo, fhi := npv(lo), npv(hi)
	if math.IsNaN(flo) || math.IsNaN(fhi) || flo*fhi > 0 {
		return 0, false
	}
	for i := 0; i < maxIterations; i++ {
		mid := (lo + hi) / 2
		fmid := npv(mid)
		if math.Abs(fmid) < tolerance || (hi-lo)/2 < tolerance {
			return mid, true
		}
		if flo*fmid < 0 {
			hi = mid
		} else {
			lo, flo = mid, fmid
		}
	}
	return 0, false
}
