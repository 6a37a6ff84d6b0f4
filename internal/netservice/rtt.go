package netservice

import "time"

// RTTEstimator implements TCP-style round-trip-time estimation via the
// Jacobson/Karels algorithm, grounded directly on
// original_source/extension/network/RTTEstimator.{hpp,cpp}.
type RTTEstimator struct {
	alpha float64
	beta  float64
	minRTO,
	maxRTO,
	smoothedRTT,
	rttVar,
	rto float64
}

// NewRTTEstimator constructs an estimator with the same defaults as the
// original: alpha 0.125, beta 0.25, initial RTT 1s, initial variation 0,
// RTO bounded to [100ms, 60s].
func NewRTTEstimator() *RTTEstimator {
	return &RTTEstimator{
		alpha:       0.125,
		beta:        0.25,
		minRTO:      0.1,
		maxRTO:      60.0,
		smoothedRTT: 1.0,
		rttVar:      0.0,
		rto:         1.0,
	}
}

// Measure folds one new round-trip-time sample into the estimate.
func (e *RTTEstimator) Measure(sample time.Duration) {
	s := sample.Seconds()
	err := s - e.smoothedRTT
	if err < 0 {
		err = -err
	}
	e.rttVar = (1-e.beta)*e.rttVar + e.beta*err
	e.smoothedRTT = (1-e.alpha)*e.smoothedRTT + e.alpha*s
	rto := e.smoothedRTT + 4*e.rttVar
	if rto < e.minRTO {
		rto = e.minRTO
	}
	if rto > e.maxRTO {
		rto = e.maxRTO
	}
	e.rto = rto
}

// Timeout returns the current recommended retransmission timeout.
func (e *RTTEstimator) Timeout() time.Duration {
	return time.Duration(e.rto * float64(time.Second))
}
