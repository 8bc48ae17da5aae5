package catalog

import (
	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/lrsc"
	"github.com/roach88/hartcheck/internal/pmp"
	"github.com/roach88/hartcheck/internal/trap"
)

// pmpSecret is stored in the protected region before the read test.
const pmpSecret uint32 = 0xCAFECAFE

// protectedRegion is entry 0 covering the start of the data space with no
// permissions, sized to the granularity.
func protectedRegion(env *harness.Env) pmp.Region {
	return pmp.Region{Index: 0, Base: env.Caps.DSpaceBase, Size: env.Caps.PMPGranularity}
}

func verifier(env *harness.Env) *pmp.Verifier {
	return pmp.New(env.Hart, env.Obs, env.Caps.PMPRegions, env.Caps.PMPGranularity)
}

func protectionCases() []harness.Case {
	pmpUser := harness.All(pmpPresent, userMode)
	return []harness.Case{
		{
			Name:       "pmp region create",
			Component:  compPMP,
			Applies:    pmpPresent,
			SkipReason: "no pmp regions",
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				return verifier(env).Configure(protectedRegion(env))
			},
			Assert: expectNoTrap,
		},
		{
			Name:       "pmp user execute denied",
			Component:  compPMP,
			Applies:    pmpUser,
			SkipReason: "no pmp regions or no user mode",
			Setup: func(env *harness.Env) error {
				env.Hart.Store(env.Caps.DSpaceBase, hart.InsnRET)
				return nil
			},
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				verifier(env).Execute(env.Caps.DSpaceBase)
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).Trap(trap.InsnAccess).FromMode(hart.User).Err()
			},
		},
		{
			Name:       "pmp user read denied",
			Component:  compPMP,
			Applies:    pmpUser,
			SkipReason: "no pmp regions or no user mode",
			Setup: func(env *harness.Env) error {
				env.Hart.Store(env.Caps.DSpaceBase, pmpSecret)
				return nil
			},
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				acc := verifier(env).Read(env.Caps.DSpaceBase)
				obs.Set("value", acc.Value)
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).Trap(trap.LoadAccess).FromMode(hart.User).Value("value", 0).Err()
			},
		},
		{
			Name:       "pmp user write denied",
			Component:  compPMP,
			Applies:    pmpUser,
			SkipReason: "no pmp regions or no user mode",
			Setup: func(env *harness.Env) error {
				env.Hart.Store(env.Caps.DSpaceBase, pmpSecret)
				return nil
			},
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				verifier(env).Write(env.Caps.DSpaceBase, 0)
				obs.Set("word", env.Hart.Load(env.Caps.DSpaceBase))
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).Trap(trap.StoreAccess).FromMode(hart.User).Value("word", pmpSecret).Err()
			},
		},
		{
			Name:       "pmp locked entry immutable",
			Component:  compPMP,
			Applies:    pmpPresent,
			SkipReason: "no pmp regions",
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				p, err := verifier(env).LockTest()
				if err != nil {
					return err
				}
				obs.Set("cfg before", p.CfgBefore)
				obs.Set("cfg after", p.CfgAfter)
				obs.Set("addr before", p.AddrBefore)
				obs.Set("addr after", p.AddrAfter)
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).NoTrap().
					Value("cfg after", obs.Value("cfg before")).
					Value("addr after", obs.Value("addr before")).
					Err()
			},
		},
	}
}

func atomicCases() []harness.Case {
	result := func(obs *harness.Observation, r lrsc.Result) {
		obs.Set("reserved", r.Reserved)
		obs.Set("status", r.Status)
		obs.Set("final", r.Final)
	}
	return []harness.Case{
		{
			Name:       "lr/sc succeeds",
			Component:  compLRSC,
			Applies:    atomic,
			SkipReason: "no atomic extension",
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				result(obs, lrsc.New(env.Hart, env.Obs, AtomicWord).Succeed())
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).NoTrap().
					Value("status", 0).
					Value("reserved", lrsc.Initial).
					Value("final", lrsc.Conditional).
					Err()
			},
		},
		{
			Name:       "lr/sc fails after store",
			Component:  compLRSC,
			Applies:    atomic,
			SkipReason: "no atomic extension",
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				result(obs, lrsc.New(env.Hart, env.Obs, AtomicWord).FailAfterStore())
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				status := obs.Value("status")
				return harness.Expect(obs).NoTrap().
					True("status", status != 0, "failure (non-zero)", "0").
					Value("reserved", lrsc.Initial).
					Value("final", lrsc.Intervening).
					Err()
			},
		},
		{
			Name:       "lr/sc fails after trap",
			Component:  compLRSC,
			Applies:    atomic,
			SkipReason: "no atomic extension",
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				result(obs, lrsc.New(env.Hart, env.Obs, AtomicWord).FailAfterTrap())
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				status := obs.Value("status")
				return harness.Expect(obs).Trap(trap.EcallM).
					True("status", status != 0, "failure (non-zero)", "0").
					Value("reserved", lrsc.Initial).
					Value("final", lrsc.Initial).
					Err()
			},
		},
	}
}
