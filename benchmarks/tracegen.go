// Package benchmarks holds end-to-end simulation scenarios and the
// synthetic trace builders that drive them.
package benchmarks

import "github.com/sarchlab/snoopsim/trace"

// Trace builds a synthetic instruction trace from the given steps.
func Trace(steps ...trace.Instruction) []trace.Instruction {
	return steps
}

// Read is a load of the given address.
func Read(address uint32) trace.Instruction {
	return trace.Instruction{Kind: trace.Read, Value: address}
}

// Write is a store to the given address.
func Write(address uint32) trace.Instruction {
	return trace.Instruction{Kind: trace.Write, Value: address}
}

// Compute is a non-memory instruction burning the given cycle count.
func Compute(cycles uint32) trace.Instruction {
	return trace.Instruction{Kind: trace.Other, Value: cycles}
}

// Repeat appends count copies of an instruction.
func Repeat(instr trace.Instruction, count int) []trace.Instruction {
	instructions := make([]trace.Instruction, count)
	for i := range instructions {
		instructions[i] = instr
	}
	return instructions
}
