package catalog

import (
	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/sandbox"
	"github.com/roach88/hartcheck/internal/trap"
)

const (
	trapIllegal = trap.Illegal

	// insnCSRWIMscratch15 is csrwi mscratch, 15.
	insnCSRWIMscratch15 uint32 = 0x3407D073
	// insnCNopCIllegal holds c.nop followed by an all-zero (illegal) parcel.
	insnCNopCIllegal uint32 = uint32(hart.InsnCNOP) | uint32(hart.InsnCIllegal)<<16
)

// expectTrap builds an Assert checking cause only.
func expectTrap(c trap.Cause) func(*harness.Env, harness.Observation) error {
	return func(_ *harness.Env, obs harness.Observation) error {
		return harness.Expect(obs).Trap(c).Err()
	}
}

// expectTrapAux builds an Assert checking cause and mtval.
func expectTrapAux(c trap.Cause, aux uint32) func(*harness.Env, harness.Observation) error {
	return func(_ *harness.Env, obs harness.Observation) error {
		return harness.Expect(obs).Trap(c).Aux(aux).Err()
	}
}

func expectNoTrap(_ *harness.Env, obs harness.Observation) error {
	return harness.Expect(obs).NoTrap().Err()
}

// exec is a stimulus issuing one raw instruction.
func exec(insn uint32) func(*harness.Env, *harness.Observation) error {
	return func(env *harness.Env, _ *harness.Observation) error {
		env.Hart.Exec(insn)
		return nil
	}
}

// copyProgram stores words at addr and synchronises the instruction stream.
func copyProgram(h hart.Hart, addr uint32, words ...uint32) {
	for i, w := range words {
		h.Store(addr+uint32(4*i), w)
	}
	h.Exec(hart.InsnFENCEI)
}

func exceptionCases() []harness.Case {
	return []harness.Case{
		{
			Name:       "external memory access",
			Component:  compShim,
			Applies:    feature(hart.FeatureExtMem),
			SkipReason: "no external memory",
			Setup: func(env *harness.Env) error {
				env.Hart.WriteCSR(hart.CSRMscratch, 0)
				copyProgram(env.Hart, hart.ExtMemBase, insnCSRWIMscratch15, hart.InsnRET)
				return nil
			},
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				env.Hart.Call(hart.ExtMemBase)
				obs.Set("mscratch", env.Hart.ReadCSR(hart.CSRMscratch))
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).NoTrap().Value("mscratch", 15).Err()
			},
		},
		{
			Name:      "fence.i",
			Component: compShim,
			Stimulus:  exec(hart.InsnFENCEI),
			Assert:    expectNoTrap,
		},
		{
			Name:      "non-existent csr",
			Component: compShim,
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				obs.Set("value", env.Hart.ReadCSR(hart.CSRUnimplemented))
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).Trap(trap.Illegal).Value("value", 0).Err()
			},
		},
		{
			Name:      "write to read-only csr",
			Component: compShim,
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				env.Hart.WriteCSR(hart.CSRTime, 0)
				return nil
			},
			Assert: expectTrap(trap.Illegal),
		},
		{
			Name:      "read-only csr without write",
			Component: compShim,
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				env.Hart.SetCSR(hart.CSRTime, 0)
				return nil
			},
			Assert: expectNoTrap,
		},
		{
			Name:      "pending mtime irq",
			Component: compTrap,
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				h := env.Hart
				h.ClearCSR(hart.CSRMstatus, hart.MstatusMIE)
				setTimeCmp(h, 0x1_00000000)
				setTime(h, 0xFFFFFFF8)
				h.Nop(8)
				// Interrupt latched while disabled; the source goes away.
				setTimeCmp(h, ^uint64(0))
				h.SetCSR(hart.CSRMstatus, hart.MstatusMIE)
				h.Nop(2)
				return nil
			},
			Assert: expectTrap(trap.MTI),
			Cleanup: func(env *harness.Env) {
				env.Hart.SetCSR(hart.CSRMstatus, hart.MstatusMIE)
			},
		},
		{
			Name:       "instruction misaligned",
			Component:  compTrap,
			Applies:    notCompressed,
			SkipReason: "compressed instructions present",
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				env.Hart.Call(hart.AddrUnaligned)
				return nil
			},
			Assert: expectTrapAux(trap.InsnMisaligned, hart.AddrUnaligned),
		},
		{
			Name:      "instruction access fault",
			Component: compTrap,
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				env.Hart.Call(hart.AddrUnreachable)
				return nil
			},
			Assert: expectTrap(trap.InsnAccess),
		},
		{
			Name:      "illegal instruction",
			Component: compTrap,
			Stimulus:  exec(hart.InsnIllegalCSR),
			Assert:    expectTrapAux(trap.Illegal, hart.InsnIllegalCSR),
		},
		{
			Name:       "illegal compressed instruction",
			Component:  compTrap,
			Applies:    compressed,
			SkipReason: "no compressed instructions",
			Setup: func(env *harness.Env) error {
				copyProgram(env.Hart, ScratchCode, insnCNopCIllegal, hart.InsnRET)
				return nil
			},
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				env.Hart.Call(ScratchCode)
				return nil
			},
			Assert: expectTrap(trap.Illegal),
		},
		{
			Name:      "breakpoint",
			Component: compTrap,
			Stimulus:  exec(hart.InsnEBREAK),
			Assert:    expectTrap(trap.Breakpoint),
		},
		{
			Name:      "load misaligned",
			Component: compTrap,
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				env.Hart.Load(hart.AddrUnaligned)
				return nil
			},
			Assert: expectTrapAux(trap.LoadMisaligned, hart.AddrUnaligned),
		},
		{
			Name:      "load access fault",
			Component: compTrap,
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				env.Hart.Load(hart.AddrUnreachable)
				return nil
			},
			Assert: expectTrapAux(trap.LoadAccess, hart.AddrUnreachable),
		},
		{
			Name:      "store misaligned",
			Component: compTrap,
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				env.Hart.Store(hart.AddrUnaligned, 0)
				return nil
			},
			Assert: expectTrapAux(trap.StoreMisaligned, hart.AddrUnaligned),
		},
		{
			Name:      "store access fault",
			Component: compTrap,
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				env.Hart.Store(hart.AddrUnreachable, 0)
				return nil
			},
			Assert: expectTrapAux(trap.StoreAccess, hart.AddrUnreachable),
		},
		{
			Name:      "ecall from machine mode",
			Component: compTrap,
			Stimulus:  exec(hart.InsnECALL),
			Assert:    expectTrap(trap.EcallM),
		},
		{
			Name:       "ecall from user mode",
			Component:  compSandbox,
			Applies:    userMode,
			SkipReason: "no user mode",
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				sandbox.RunReduced(env.Hart, env.Obs, func() { env.Hart.Exec(hart.InsnECALL) })
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).Trap(trap.EcallU).FromMode(hart.User).Err()
			},
		},
	}
}

func privilegeCases() []harness.Case {
	return []harness.Case{
		{
			Name:      "wfi in user mode",
			Component: compSandbox,
			Setup: func(env *harness.Env) error {
				h := env.Hart
				setTimeCmp(h, readTime(h)+1000)
				h.ClearCSR(hart.CSRMstatus, hart.MstatusTW)
				return nil
			},
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				sandbox.RunReduced(env.Hart, env.Obs, func() { env.Hart.Exec(hart.InsnWFI) })
				return nil
			},
			Assert: expectTrap(trap.MTI),
			Cleanup: func(env *harness.Env) {
				setTimeCmp(env.Hart, ^uint64(0))
			},
		},
		{
			Name:       "user mode misa read",
			Component:  compSandbox,
			Applies:    userMode,
			SkipReason: "no user mode",
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				var v uint32 = 0xFFFFFFFF
				sandbox.RunReduced(env.Hart, env.Obs, func() { v = env.Hart.ReadCSR(hart.CSRMisa) })
				obs.Set("misa", v)
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).Trap(trap.Illegal).FromMode(hart.User).Value("misa", 0).Err()
			},
		},
		{
			Name:      "debug trap handler",
			Component: compTrap,
			Setup: func(env *harness.Env) error {
				return env.Obs.Uninstall(trap.Illegal)
			},
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				env.Hart.ReadCSR(hart.CSRUnimplemented)
				obs.Set("mcause", env.Hart.ReadCSR(hart.CSRMcause))
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				mcause := obs.Value("mcause")
				return harness.Expect(obs).
					Trap(trap.Illegal).
					True("mcause", mcause != 0, "non-zero", "0").
					Err()
			},
			Cleanup: func(env *harness.Env) {
				if err := env.Obs.Install(trap.Illegal, trap.Default); err != nil {
					env.Logger.Error("reinstall illegal instruction handler", "error", err)
				}
			},
		},
	}
}
