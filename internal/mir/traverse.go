package mir

// IdSet is a set of MIR ids.
type IdSet map[Id]struct{}

// NewIdSet builds a set from ids.
func NewIdSet(ids ...Id) IdSet {
	set := make(IdSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Add inserts id into the set.
func (s IdSet) Add(id Id) { s[id] = struct{}{} }

// Contains reports whether id is in the set.
func (s IdSet) Contains(id Id) bool {
	_, ok := s[id]
	return ok
}

// ReferencedIds returns the ids an expression uses that are not defined
// inside it. For functions this is the capture set.
func ReferencedIds(expr Expression) IdSet {
	free := make(IdSet)
	collectFreeIds(expr, make(IdSet), free)
	return free
}

// CapturedIds is ReferencedIds restricted to functions, kept as its own
// name for call sites where the capture reading matters.
func CapturedIds(fn Function) IdSet {
	return ReferencedIds(fn)
}

func collectFreeIds(expr Expression, bound IdSet, free IdSet) {
	use := func(id Id) {
		if id == NoId {
			return
		}
		if !bound.Contains(id) {
			free.Add(id)
		}
	}
	switch e := expr.(type) {
	case Int, Text, Builtin, HirIdent, Parameter, ModuleStarts, ModuleEnds:
	case Tag:
		use(e.Value)
	case List:
		for _, item := range e.Items {
			use(item)
		}
	case Struct:
		for _, field := range e.Fields {
			use(field.Key)
			use(field.Value)
		}
	case Reference:
		use(e.Target)
	case Function:
		inner := copyBoundSet(bound)
		for _, param := range e.Parameters {
			inner.Add(param)
		}
		inner.Add(e.ResponsibleParameter)
		collectBodyFreeIds(e.Body, inner, free)
	case Call:
		use(e.Function)
		for _, arg := range e.Arguments {
			use(arg)
		}
		use(e.Responsible)
	case UseModule:
		use(e.RelativePath)
		use(e.Responsible)
	case Panic:
		use(e.Reason)
		use(e.Responsible)
	case Multiple:
		collectBodyFreeIds(e.Body, copyBoundSet(bound), free)
	case TraceCallStarts:
		use(e.HirCall)
		use(e.Function)
		for _, arg := range e.Arguments {
			use(arg)
		}
		use(e.Responsible)
	case TraceCallEnds:
		use(e.ReturnValue)
	case TraceExpressionEvaluated:
		use(e.HirExpression)
		use(e.Value)
	case TraceFoundFuzzableClosure:
		use(e.HirDefinition)
		use(e.Function)
	case TraceTailCall:
		use(e.HirCall)
		use(e.Function)
		for _, arg := range e.Arguments {
			use(arg)
		}
		use(e.Responsible)
	}
}

func collectBodyFreeIds(body Body, bound IdSet, free IdSet) {
	for _, binding := range body.Bindings {
		collectFreeIds(binding.Expression, bound, free)
		bound.Add(binding.Id)
	}
}

func copyBoundSet(bound IdSet) IdSet {
	inner := make(IdSet, len(bound))
	for id := range bound {
		inner.Add(id)
	}
	return inner
}

// ReplaceIdUses rewrites every id use site in the expression, including
// inside nested bodies. Definition sites (binding ids, parameters) are
// left alone.
func ReplaceIdUses(expr Expression, f func(Id) Id) Expression {
	return rewriteIds(expr, f, false)
}

// ReplaceAllIds rewrites every id in the expression, use and definition
// sites alike. Used for id normalization where a whole subtree is
// consistently renamed.
func ReplaceAllIds(expr Expression, f func(Id) Id) Expression {
	return rewriteIds(expr, f, true)
}

func rewriteIds(expr Expression, f func(Id) Id, includeDefinitions bool) Expression {
	opt := func(id Id) Id {
		if id == NoId {
			return NoId
		}
		return f(id)
	}
	switch e := expr.(type) {
	case Int, Text, Builtin, HirIdent, Parameter, ModuleStarts, ModuleEnds:
		return e
	case Tag:
		e.Value = opt(e.Value)
		return e
	case List:
		e.Items = rewriteIdSlice(e.Items, f)
		return e
	case Struct:
		fields := make([]StructField, len(e.Fields))
		for i, field := range e.Fields {
			fields[i] = StructField{Key: f(field.Key), Value: f(field.Value)}
		}
		e.Fields = fields
		return e
	case Reference:
		e.Target = f(e.Target)
		return e
	case Function:
		if includeDefinitions {
			e.Parameters = rewriteIdSlice(e.Parameters, f)
			e.ResponsibleParameter = f(e.ResponsibleParameter)
		} else {
			e.Parameters = append([]Id(nil), e.Parameters...)
		}
		e.Body = rewriteBodyIds(e.Body, f, includeDefinitions)
		return e
	case Call:
		e.Function = f(e.Function)
		e.Arguments = rewriteIdSlice(e.Arguments, f)
		e.Responsible = f(e.Responsible)
		return e
	case UseModule:
		e.RelativePath = f(e.RelativePath)
		e.Responsible = f(e.Responsible)
		return e
	case Panic:
		e.Reason = f(e.Reason)
		e.Responsible = f(e.Responsible)
		return e
	case Multiple:
		e.Body = rewriteBodyIds(e.Body, f, includeDefinitions)
		return e
	case TraceCallStarts:
		e.HirCall = f(e.HirCall)
		e.Function = f(e.Function)
		e.Arguments = rewriteIdSlice(e.Arguments, f)
		e.Responsible = f(e.Responsible)
		return e
	case TraceCallEnds:
		e.ReturnValue = f(e.ReturnValue)
		return e
	case TraceExpressionEvaluated:
		e.HirExpression = f(e.HirExpression)
		e.Value = f(e.Value)
		return e
	case TraceFoundFuzzableClosure:
		e.HirDefinition = f(e.HirDefinition)
		e.Function = f(e.Function)
		return e
	case TraceTailCall:
		e.HirCall = f(e.HirCall)
		e.Function = f(e.Function)
		e.Arguments = rewriteIdSlice(e.Arguments, f)
		e.Responsible = f(e.Responsible)
		return e
	default:
		return expr
	}
}

func rewriteIdSlice(ids []Id, f func(Id) Id) []Id {
	out := make([]Id, len(ids))
	for i, id := range ids {
		out[i] = f(id)
	}
	return out
}

func rewriteBodyIds(body Body, f func(Id) Id, includeDefinitions bool) Body {
	bindings := make([]Binding, len(body.Bindings))
	for i, binding := range body.Bindings {
		id := binding.Id
		if includeDefinitions {
			id = f(id)
		}
		bindings[i] = Binding{Id: id, Expression: rewriteIds(binding.Expression, f, includeDefinitions)}
	}
	return Body{Bindings: bindings}
}
