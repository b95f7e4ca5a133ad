// Package vm implements the runtime: per-fiber heaps with reference
// counting, cooperative fiber execution of LIR, channels, and the
// scheduler that drives them.
package vm

import "fmt"

// FiberId identifies a fiber within one VM.
type FiberId int

func (id FiberId) String() string { return fmt.Sprintf("fiber-%d", int(id)) }

// ChannelId identifies a channel within one VM.
type ChannelId int

func (id ChannelId) String() string { return fmt.Sprintf("channel-%d", int(id)) }

// Handle identifies a heap object within one Heap. Zero is never valid.
type Handle uint32
