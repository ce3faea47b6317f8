// Package scoring turns registry data plus community signals into a
// bounded trust score with itemized rationale.
package scoring

import (
	"fmt"
	"time"

	"github.com/confiabar/confiabar/internal/domain"
)

// Fixed point weights. The values and the ordering of rationale items
// are user-facing contracts.
const (
	activeStatusPoints  = 30
	tenureLongPoints    = 20
	tenureShortPoints   = 10
	activityPoints      = 20
	reportSignalPoints  = 10
	penaltyUnitDeduct   = 15
	penaltyMaxDeduct    = 45
	tenureLongYears     = 3
	tenureShortYears    = 1
	sealedPositivePct   = 80
	invoicePositivePct  = 80
	observationAlertPct = 50
	cleanPositiveAvg    = 4.0
	cleanAlertAvg       = 3.0
)

// foodActivityPrefixes is the allow-list of CNAE prefixes considered
// compatible with food and beverage service: restaurants, mobile food,
// catering, grocery retail, bakeries and beverage retail.
var foodActivityPrefixes = []string{"5611", "5612", "5620", "4721", "1091", "4729"}

// Input is everything the score depends on. Pure data, no handles.
type Input struct {
	Record       *domain.CanonicalRecord
	ReportStats  *domain.ReportStats
	PenaltyCount int

	// Now anchors the tenure calculation.
	Now time.Time
}

// Score computes the trust score for one establishment. Deterministic
// for identical input.
func Score(in Input) *domain.ScoreResult {
	result := &domain.ScoreResult{
		Identifier:      in.Record.Identifier,
		PositiveSignals: []string{},
		AlertSignals:    []string{},
		PenaltyCount:    in.PenaltyCount,
	}

	stats := in.ReportStats
	if stats == nil {
		stats = &domain.ReportStats{}
	}
	result.ReportStats = *stats

	score := 0

	// 1. Active registration status.
	if in.Record.ActiveStatus() {
		score += activeStatusPoints
		result.PositiveSignals = append(result.PositiveSignals, "Registration status is active")
	} else {
		result.AlertSignals = append(result.AlertSignals, "Registration status is irregular")
	}

	// 2. Tenure.
	years := in.Record.YearsOperating(in.Now)
	switch {
	case years >= tenureLongYears:
		score += tenureLongPoints
		result.PositiveSignals = append(result.PositiveSignals,
			fmt.Sprintf("Operating for %d years", years))
	case years >= tenureShortYears:
		score += tenureShortPoints
		result.PositiveSignals = append(result.PositiveSignals,
			fmt.Sprintf("Operating for %d year(s)", years))
	default:
		result.AlertSignals = append(result.AlertSignals, "Newly opened establishment (less than 1 year)")
	}

	// 3. Activity-code compatibility.
	if hasFoodActivity(in.Record.Activity.Code) {
		score += activityPoints
		result.PositiveSignals = append(result.PositiveSignals, "Activity compatible with food service")
	} else {
		result.AlertSignals = append(result.AlertSignals, "Activity code is not typical of a bar or restaurant")
	}

	// 4. Community reports. Ratings between the alert and positive
	// thresholds are a neutral band: no points, no alert.
	if stats.Total > 0 {
		if stats.PctSealedBottles >= sealedPositivePct {
			score += reportSignalPoints
			result.PositiveSignals = append(result.PositiveSignals, "Users confirm sealed bottles")
		} else if stats.PctSealedBottles < observationAlertPct {
			result.AlertSignals = append(result.AlertSignals, "Few users observed sealed bottles")
		}

		if stats.PctInvoiceIssued >= invoicePositivePct {
			score += reportSignalPoints
			result.PositiveSignals = append(result.PositiveSignals, "Users confirm invoice issuance")
		} else if stats.PctInvoiceIssued < observationAlertPct {
			result.AlertSignals = append(result.AlertSignals, "Few users observed invoices")
		}

		if stats.AvgCleanliness >= cleanPositiveAvg {
			score += reportSignalPoints
			result.PositiveSignals = append(result.PositiveSignals,
				fmt.Sprintf("Good cleanliness rating (%.1f/5)", stats.AvgCleanliness))
		} else if stats.AvgCleanliness < cleanAlertAvg {
			result.AlertSignals = append(result.AlertSignals,
				fmt.Sprintf("Low cleanliness rating (%.1f/5)", stats.AvgCleanliness))
		}

		result.PositiveSignals = append(result.PositiveSignals,
			fmt.Sprintf("%d user report(s)", stats.Total))
	} else {
		result.AlertSignals = append(result.AlertSignals, "No user reports yet")
	}

	// 5. Penalty deduction.
	if in.PenaltyCount > 0 {
		deduction := in.PenaltyCount * penaltyUnitDeduct
		if deduction > penaltyMaxDeduct {
			deduction = penaltyMaxDeduct
		}
		score -= deduction
		result.AlertSignals = append(result.AlertSignals,
			fmt.Sprintf("%d penalty report(s) registered", in.PenaltyCount))
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	result.Score = score
	result.Category, result.ClassLabel, result.Recommendation = domain.Categorize(score)
	return result
}

// hasFoodActivity matches the first four digits of a CNAE code against
// the allow-list. Codes may carry punctuation ("56.11-2-01").
func hasFoodActivity(code string) bool {
	digits := make([]byte, 0, len(code))
	for i := 0; i < len(code); i++ {
		if code[i] >= '0' && code[i] <= '9' {
			digits = append(digits, code[i])
		}
	}
	if len(digits) < 4 {
		return false
	}
	prefix := string(digits[:4])
	for _, p := range foodActivityPrefixes {
		if prefix == p {
			return true
		}
	}
	return false
}
