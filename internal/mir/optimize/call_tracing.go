package optimize

import "candy/internal/mir"

// CallTracingMode controls how much call tracing survives optimization.
type CallTracingMode int

const (
	// TraceAllCalls keeps every call trace marker.
	TraceAllCalls CallTracingMode = iota
	// TraceOnlyForPanicTraces keeps markers only where a panic could
	// originate between them.
	TraceOnlyForPanicTraces
	// TraceNoCalls strips all call trace markers.
	TraceNoCalls
)

// TracingConfig selects which trace events the optimized code reports.
type TracingConfig struct {
	CallTracing       CallTracingMode
	TraceEvaluated    bool
	RegisterFuzzables bool
}

// simplifyCallTracing strips trace markers the configuration does not
// need. Under TraceOnlyForPanicTraces a TraceCallStarts/TraceCallEnds
// pair whose span is entirely pure is dead weight: nothing in it can
// panic, so it can never appear in a panic trace. A call in tail
// position keeps only a TraceTailCall marker, since its TraceCallEnds
// would run after the frame is already gone.
func simplifyCallTracing(m *mir.Mir, tracing TracingConfig, insights *PurenessInsights) {
	m.Body.VisitBodies(func(body *mir.Body) {
		switch tracing.CallTracing {
		case TraceAllCalls:
		case TraceOnlyForPanicTraces:
			removePureTraceSpans(body, insights)
			collapseTailCalls(body)
		case TraceNoCalls:
			stripCallMarkers(body)
		}
		if !tracing.TraceEvaluated {
			replaceMarkers(body, func(expr mir.Expression) bool {
				_, ok := expr.(mir.TraceExpressionEvaluated)
				return ok
			})
		}
		if !tracing.RegisterFuzzables {
			replaceMarkers(body, func(expr mir.Expression) bool {
				_, ok := expr.(mir.TraceFoundFuzzableClosure)
				return ok
			})
		}
	})
}

func stripCallMarkers(body *mir.Body) {
	replaceMarkers(body, func(expr mir.Expression) bool {
		switch expr.(type) {
		case mir.TraceCallStarts, mir.TraceCallEnds, mir.TraceTailCall:
			return true
		default:
			return false
		}
	})
}

// replaceMarkers rebinds matching marker ids to Nothing. The binding stays
// so later references remain valid; tree shaking removes it.
func replaceMarkers(body *mir.Body, matches func(mir.Expression) bool) {
	for i := range body.Bindings {
		if matches(body.Bindings[i].Expression) {
			body.Bindings[i].Expression = mir.Nothing()
		}
	}
}

// removePureTraceSpans erases TraceCallStarts/TraceCallEnds pairs whose
// enclosed bindings are all pure.
func removePureTraceSpans(body *mir.Body, insights *PurenessInsights) {
	for i := 0; i < len(body.Bindings); i++ {
		if _, ok := body.Bindings[i].Expression.(mir.TraceCallStarts); !ok {
			continue
		}
		end, found := matchingTraceEnd(body, i)
		if !found {
			continue
		}
		pure := true
		for j := i + 1; j < end; j++ {
			id := body.Bindings[j].Id
			insights.VisitOptimized(id, body.Bindings[j].Expression)
			if !insights.IsPure(id) {
				pure = false
				break
			}
		}
		if pure {
			body.Bindings[i].Expression = mir.Nothing()
			body.Bindings[end].Expression = mir.Nothing()
		}
	}
}

func matchingTraceEnd(body *mir.Body, start int) (int, bool) {
	depth := 0
	for i := start + 1; i < len(body.Bindings); i++ {
		switch body.Bindings[i].Expression.(type) {
		case mir.TraceCallStarts:
			depth++
		case mir.TraceCallEnds:
			if depth == 0 {
				return i, true
			}
			depth--
		}
	}
	return 0, false
}

// collapseTailCalls rewrites the pattern at the end of a body where a
// traced call's result is the return value: starts, call, ends, and a
// reference returning the call's result. The TraceCallEnds can never
// observe anything useful there, so the start marker becomes a
// TraceTailCall and the end marker is dropped.
func collapseTailCalls(body *mir.Body) {
	n := len(body.Bindings)
	if n < 4 {
		return
	}
	ref, okRef := body.Bindings[n-1].Expression.(mir.Reference)
	ends, okEnds := body.Bindings[n-2].Expression.(mir.TraceCallEnds)
	call, okCall := body.Bindings[n-3].Expression.(mir.Call)
	starts, okStarts := body.Bindings[n-4].Expression.(mir.TraceCallStarts)
	if !okRef || !okEnds || !okCall || !okStarts {
		return
	}
	callId := body.Bindings[n-3].Id
	if ref.Target != callId || ends.ReturnValue != callId || starts.Function != call.Function {
		return
	}
	body.Bindings[n-4].Expression = mir.TraceTailCall{
		HirCall:     starts.HirCall,
		Function:    starts.Function,
		Arguments:   starts.Arguments,
		Responsible: starts.Responsible,
	}
	// The ends marker is unreachable after a tail call.
	body.Bindings = append(body.Bindings[:n-2], body.Bindings[n-1])
}
