// Tastemap - Restaurant Recommendation and Ranking Service
// Copyright 2026 Tastemap Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tastemap/tastemap

package recommend

import "math"

// logScale is the denominator of every review-volume term. Review counts
// are compressed to roughly [log(50)/log(1000), 1] over realistic ranges.
var logScale = math.Log(1000)

// reviewAdjust returns the log-compressed review-volume term. The +50
// offset keeps the logarithm argument at 50 or above, so a zero review
// count still yields a fixed positive constant.
func reviewAdjust(review int) float64 {
	if review < 0 {
		review = 0
	}
	return math.Log(float64(review)+50) / logScale
}

// popularityNudge returns log(review+1)/log(1000), the shared popularity
// term used by the personalization and new-user adjustments.
func popularityNudge(review int) float64 {
	if review < 0 {
		review = 0
	}
	return math.Log(float64(review)+1) / logScale
}

// compositeScore computes the pre-calibration composite for one candidate:
//
//	raw + review_weight*log(review+50)/log(1000)
//	    + caution_weight*(positive - negative)
//	    + convenience_weight*mean(amenity flags)
//
// The predicted score rides along in the candidate for the output contract
// but does not enter the formula.
func compositeScore(cfg *ScoringConfig, r *RestaurantRecord) float64 {
	composite := r.Score
	composite += cfg.ReviewWeight * reviewAdjust(r.Review)
	composite += cfg.CautionWeight * float64(r.Caution.PositiveCount()-r.Caution.NegativeCount())
	composite += cfg.ConvenienceWeight * r.ConvenienceMean()
	return composite
}

// calibrate maps an unbounded composite into (0, 5) with a sigmoid:
// 5 / (1 + e^(-a*(x-b))). The transform is strictly monotonic, so
// calibration never reorders candidates.
func calibrate(cfg *ScoringConfig, composite float64) float64 {
	return 5 / (1 + math.Exp(-cfg.SigmoidSlope*(composite-cfg.SigmoidMidpoint)))
}

// scoreCandidates fills the composite column for every candidate.
// Calibration happens later, after the adjustment stages, so bonuses are
// applied on the unbounded scale the sigmoid expects.
func scoreCandidates(cfg *ScoringConfig, candidates []CandidateScore) {
	for i := range candidates {
		candidates[i].Composite = compositeScore(cfg, candidates[i].Restaurant)
	}
}

// calibrateCandidates applies the sigmoid to every candidate.
func calibrateCandidates(cfg *ScoringConfig, candidates []CandidateScore) {
	for i := range candidates {
		candidates[i].Composite = calibrate(cfg, candidates[i].Composite)
	}
}
