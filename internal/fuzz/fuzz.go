// Package fuzz finds inputs that make closures panic. It runs a module
// under a tracer that collects the closures the compiler marked as
// fuzzable, then calls each of them with generated arguments. A panic
// blamed on code inside the closure is a finding; a panic blamed on the
// generated call is the fuzzer's own fault and is ignored.
package fuzz

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"candy/internal/hir"
	"candy/internal/lir"
	"candy/internal/vm"
)

// Options tune a fuzzing run.
type Options struct {
	// Seed makes input generation reproducible.
	Seed int64
	// CasesPerClosure is how many inputs each closure is called with.
	CasesPerClosure int
	// MaxInstructions bounds each case; cases that run longer count as
	// neither passed nor failed.
	MaxInstructions int
	// Workers is the number of cases run concurrently. Each case owns
	// its VM and heaps, so workers share nothing.
	Workers int
}

// DefaultOptions mirror a quick interactive fuzzing session.
func DefaultOptions() Options {
	return Options{
		Seed:            0,
		CasesPerClosure: 64,
		MaxInstructions: 100_000,
		Workers:         8,
	}
}

// Finding is one failing case: a closure panicked on generated input and
// the blame lies inside the closure itself.
type Finding struct {
	Closure   hir.Id
	Arguments []string
	Panic     vm.Panic
}

func (f Finding) String() string {
	return fmt.Sprintf("%s panicked on input %v: %s", f.Closure, f.Arguments, f.Panic.Reason)
}

// CollectFuzzables runs the module body and returns the closures it
// reported as fuzzable.
func CollectFuzzables(l *lir.Lir, responsible hir.Id, provider vm.UseProvider, budget int) ([]vm.Fuzzable, error) {
	tracer := vm.NewFuzzablesTracer()
	machine := vm.NewVM(tracer)
	machine.SetUpForRunningModuleClosure(moduleClosure(l), responsible)
	machine.Run(provider, vm.NewRunLimitedNumberOfInstructions(budget))
	if machine.Status() == vm.VMPanicked {
		result := machine.TearDown()
		return nil, fmt.Errorf("the module itself panicked: %s", result.Panic.Reason)
	}
	return tracer.Fuzzables(), nil
}

func moduleClosure(l *lir.Lir) vm.Packet {
	heap := vm.NewHeap()
	closure := heap.NewClosure(l, l.ModuleBody(), nil)
	packet := vm.NewPacket(heap, closure)
	heap.Drop(closure)
	return packet
}

// Run fuzzes every fuzzable closure of the module and returns the
// findings. An error means the fuzzer could not run, not that a closure
// failed.
func Run(ctx context.Context, l *lir.Lir, responsible hir.Id, provider vm.UseProvider, opts Options) ([]Finding, error) {
	fuzzables, err := CollectFuzzables(l, responsible, provider, opts.MaxInstructions)
	if err != nil {
		return nil, err
	}

	gen := newGenerator(opts.Seed)
	type fuzzCase struct {
		fuzzable  vm.Fuzzable
		arguments []vm.Packet
		rendered  []string
	}
	var cases []fuzzCase
	for _, fuzzable := range fuzzables {
		count, ok := parameterCount(fuzzable)
		if !ok {
			continue
		}
		for i := 0; i < opts.CasesPerClosure; i++ {
			c := fuzzCase{fuzzable: fuzzable}
			for p := 0; p < count; p++ {
				packet := gen.packet()
				c.arguments = append(c.arguments, packet)
				c.rendered = append(c.rendered, packet.Heap.DebugText(packet.Value))
			}
			cases = append(cases, c)
		}
	}

	var (
		mu       sync.Mutex
		findings []Finding
	)
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(opts.Workers)
	for _, c := range cases {
		c := c
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			machine := vm.NewVM(vm.NopTracer{})
			machine.SetUpForRunningClosure(c.fuzzable.Closure, c.arguments, c.fuzzable.Definition)
			machine.Run(provider, vm.NewRunLimitedNumberOfInstructions(opts.MaxInstructions))
			if machine.Status() != vm.VMPanicked {
				return nil
			}
			result := machine.TearDown()
			if !c.fuzzable.Definition.Contains(result.Panic.Responsible) {
				// The generated input broke a contract, for example a
				// wrong argument type. Not the closure's fault.
				return nil
			}
			mu.Lock()
			findings = append(findings, Finding{
				Closure:   c.fuzzable.Definition,
				Arguments: c.rendered,
				Panic:     result.Panic,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return findings, nil
}

func parameterCount(fuzzable vm.Fuzzable) (int, bool) {
	value := fuzzable.Closure.Value
	if value.Kind != vm.VKHeap {
		return 0, false
	}
	obj := fuzzable.Closure.Heap.Get(value)
	if obj.Kind != vm.OKClosure {
		return 0, false
	}
	body, ok := obj.Closure.Lir.Body(obj.Closure.Body)
	if !ok {
		return 0, false
	}
	return body.ParameterCount, true
}
