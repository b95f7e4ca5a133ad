package vm

import (
	"fmt"

	"candy/internal/hir"
)

// VMStatus summarizes whether a VM can make progress.
type VMStatus uint8

const (
	// VMCanRun means at least one fiber is runnable.
	VMCanRun VMStatus = iota
	// VMWaitingForOperations means every live fiber is blocked on a
	// channel operation that nothing will complete: a deadlock. Reported
	// as a status, not a panic; the caller decides how to treat it.
	VMWaitingForOperations
	// VMDone means the root fiber finished.
	VMDone
	// VMPanicked means the program panicked.
	VMPanicked
)

// ExecutionResult is the outcome of a whole run.
type ExecutionResult struct {
	Panicked bool
	Return   Packet
	Panic    Panic
}

// channelEntry pairs a channel with the fibers blocked on it. Sends and
// receives queue separately; within one direction they complete in the
// order they were issued.
type channelEntry struct {
	channel         *Channel
	pendingSends    []FiberId
	pendingReceives []FiberId
}

type fiberEntry struct {
	fiber *Fiber
	id    FiberId
	// root fibers surface their result; child fibers are fire-and-forget
	// except for panics.
	isRoot bool
}

// VM owns a set of fibers and channels and schedules them cooperatively
// on the calling goroutine. The fiber and channel tables are only touched
// by Run's loop; there is no concurrency at this level.
type VM struct {
	fibers      []*fiberEntry
	channels    map[ChannelId]*channelEntry
	nextFiber   FiberId
	nextChannel ChannelId
	tracer      Tracer

	status VMStatus
	result ExecutionResult
}

// NewVM returns an empty VM reporting to tracer.
func NewVM(tracer Tracer) *VM {
	if tracer == nil {
		tracer = NopTracer{}
	}
	return &VM{
		channels:    make(map[ChannelId]*channelEntry),
		nextChannel: 1,
		tracer:      tracer,
	}
}

// SetUpForRunningModuleClosure creates the root fiber from a module-level
// closure. This together with TearDown is the only sanctioned way to run
// a program end to end.
func (vm *VM) SetUpForRunningModuleClosure(closure Packet, responsible hir.Id) {
	vm.SetUpForRunningClosure(closure, nil, responsible)
}

// SetUpForRunningClosure creates the root fiber from an arbitrary closure
// and arguments. The fuzzer uses this to call collected closures with
// generated inputs.
func (vm *VM) SetUpForRunningClosure(closure Packet, arguments []Packet, responsible hir.Id) {
	if len(vm.fibers) > 0 {
		panic("the VM is already set up")
	}
	vm.addFiber(closure, arguments, responsible, true)
	vm.status = VMCanRun
}

func (vm *VM) addFiber(closure Packet, arguments []Packet, responsible hir.Id, isRoot bool) *fiberEntry {
	id := vm.nextFiber
	vm.nextFiber++
	entry := &fiberEntry{
		fiber:  NewFiberForCall(closure, arguments, responsible, vm.tracer.TracerForFiber(id)),
		id:     id,
		isRoot: isRoot,
	}
	vm.fibers = append(vm.fibers, entry)
	vm.tracer.FiberCreated(id)
	return entry
}

// Status reports whether the VM can still make progress.
func (vm *VM) Status() VMStatus { return vm.status }

// Run drives the scheduler until the program finishes, deadlocks, or the
// controller's budget runs out for every runnable fiber in this slice.
func (vm *VM) Run(provider UseProvider, controller ExecutionController) {
	for vm.status == VMCanRun && controller.ShouldContinue() {
		progressed := false
		// Fibers spawned or removed during a round take effect next
		// round; iterating a copy keeps the round's order stable.
		round := make([]*fiberEntry, len(vm.fibers))
		copy(round, vm.fibers)
		for _, entry := range round {
			if vm.status != VMCanRun || !controller.ShouldContinue() {
				break
			}
			if entry.fiber.Status() != StatusRunning {
				continue
			}
			progressed = true
			vm.tracer.FiberExecutionStarted(entry.id)
			entry.fiber.Run(provider, controller)
			vm.tracer.FiberExecutionEnded(entry.id)
			vm.handleFiberState(entry)
		}
		if !progressed {
			if vm.status == VMCanRun {
				vm.status = VMWaitingForOperations
			}
			return
		}
	}
}

func (vm *VM) handleFiberState(entry *fiberEntry) {
	fiber := entry.fiber
	switch fiber.Status() {
	case StatusRunning:
		// Slice budget ran out; the fiber continues next round.

	case StatusCreatingChannel:
		id := vm.nextChannel
		vm.nextChannel++
		vm.channels[id] = &channelEntry{channel: NewChannel(fiber.channelCapacity)}
		vm.tracer.ChannelCreated(id)
		fiber.CompleteChannelCreate(id)

	case StatusSending:
		ch := vm.channelFor(fiber.channel)
		ch.pendingSends = append(ch.pendingSends, entry.id)
		vm.settle(ch)

	case StatusReceiving:
		ch := vm.channelFor(fiber.channel)
		ch.pendingReceives = append(ch.pendingReceives, entry.id)
		vm.settle(ch)

	case StatusSpawning:
		closure := fiber.outgoing
		fiber.outgoing = Packet{}
		vm.addFiber(closure, nil, fiber.spawnResponsible, false)
		fiber.CompleteSpawn()

	case StatusDone:
		vm.tracer.IntegrateFiberTracer(entry.id, fiber.Tracer(), fiber.Heap())
		vm.tracer.FiberDone(entry.id)
		if entry.isRoot {
			vm.status = VMDone
			vm.result = ExecutionResult{Return: fiber.Result()}
			vm.cancelOthers(entry.id)
		}
		vm.removeFiber(entry)

	case StatusPanicked:
		vm.tracer.IntegrateFiberTracer(entry.id, fiber.Tracer(), fiber.Heap())
		vm.tracer.FiberPanicked(entry.id, fiber.PanicValue())
		vm.status = VMPanicked
		vm.result = ExecutionResult{Panicked: true, Panic: fiber.PanicValue()}
		vm.cancelOthers(entry.id)
		vm.removeFiber(entry)
	}
}

func (vm *VM) channelFor(id ChannelId) *channelEntry {
	ch, ok := vm.channels[id]
	if !ok {
		panic(fmt.Sprintf("fiber blocked on unknown %s", id))
	}
	return ch
}

// settle completes as many blocked operations on a channel as the
// buffer allows: pending sends fill free capacity, pending receives
// drain buffered packets.
func (vm *VM) settle(ch *channelEntry) {
	for {
		progressed := false
		if len(ch.pendingSends) > 0 && ch.channel.HasRoom() {
			id := ch.pendingSends[0]
			ch.pendingSends = ch.pendingSends[1:]
			if entry := vm.fiberById(id); entry != nil {
				ch.channel.Push(entry.fiber.outgoing)
				entry.fiber.outgoing = Packet{}
				entry.fiber.CompleteSend()
			}
			progressed = true
		}
		if len(ch.pendingReceives) > 0 {
			if packet, ok := ch.channel.Pop(); ok {
				id := ch.pendingReceives[0]
				ch.pendingReceives = ch.pendingReceives[1:]
				if entry := vm.fiberById(id); entry != nil {
					entry.fiber.CompleteReceive(packet)
				}
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

func (vm *VM) fiberById(id FiberId) *fiberEntry {
	for _, entry := range vm.fibers {
		if entry.id == id {
			return entry
		}
	}
	return nil
}

func (vm *VM) removeFiber(target *fiberEntry) {
	for i, entry := range vm.fibers {
		if entry == target {
			vm.fibers = append(vm.fibers[:i], vm.fibers[i+1:]...)
			return
		}
	}
}

// cancelOthers cancels every fiber except the one that caused the stop,
// so no channel operation is left permanently pending.
func (vm *VM) cancelOthers(cause FiberId) {
	for _, entry := range vm.fibers {
		if entry.id == cause {
			continue
		}
		vm.tracer.FiberCanceled(entry.id)
	}
	vm.fibers = nil
}

// TearDown extracts the final result. Calling it before the program
// finished or panicked is a caller bug.
func (vm *VM) TearDown() ExecutionResult {
	switch vm.status {
	case VMDone, VMPanicked:
		return vm.result
	default:
		panic(fmt.Sprintf("tearing down a VM in status %d", vm.status))
	}
}
