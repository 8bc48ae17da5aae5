package catalog

import (
	"github.com/roach88/hartcheck/internal/harness"
	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/inject"
	"github.com/roach88/hartcheck/internal/trap"
)

// SLINKPattern is the word sent through the stream link loopback.
const SLINKPattern uint32 = 0xA1B2C3D4

// firqMask returns the mie/mip bits of the given fast interrupt channels.
func firqMask(channels ...int) uint32 {
	var m uint32
	for _, n := range channels {
		m |= hart.FIRQEnable(n)
	}
	return m
}

// enableFIRQ is a Setup enabling fast interrupt channels.
func enableFIRQ(channels ...int) func(*harness.Env) error {
	return func(env *harness.Env) error {
		env.Hart.SetCSR(hart.CSRMie, firqMask(channels...))
		return nil
	}
}

// disableFIRQ disables the channels and drops anything still pending on
// them.
func disableFIRQ(h hart.Hart, channels ...int) {
	m := firqMask(channels...)
	h.ClearCSR(hart.CSRMie, m)
	h.ClearCSR(hart.CSRMip, m)
}

// trigger is a stimulus asserting simulation interrupt lines.
func trigger(mask uint32) func(*harness.Env, *harness.Observation) error {
	return func(env *harness.Env, _ *harness.Observation) error {
		if err := inject.Trigger(env.Hart, env.Obs, mask); err != nil {
			return err
		}
		env.Settle(2)
		return nil
	}
}

// uartCase checks one UART fast interrupt. Simulation mode is dropped for the
// duration of the case so the character goes through the testbench loopback.
// The sibling channel fires as well and is cleared afterwards.
func uartCase(name string, bit, ct, data uint32, channel, sibling int) harness.Case {
	var saved uint32
	return harness.Case{
		Name:       name,
		Component:  compIO,
		Applies:    feature(bit),
		SkipReason: "not implemented",
		Setup: func(env *harness.Env) error {
			saved = env.Hart.Load(ct)
			env.Hart.SetCSR(hart.CSRMie, firqMask(channel))
			env.Hart.Store(ct, saved&^hart.UARTCtSimMode|hart.UARTCtEnable)
			return nil
		},
		Stimulus: func(env *harness.Env, _ *harness.Observation) error {
			env.Hart.Store(data, 0)
			waitIdle(env.Hart, ct, hart.UARTCtTxBusy)
			env.Settle(2)
			return nil
		},
		Assert: expectTrap(trap.FIRQ(channel)),
		Cleanup: func(env *harness.Env) {
			env.Hart.Store(ct, saved)
			disableFIRQ(env.Hart, channel, sibling)
		},
	}
}

func interruptCases() []harness.Case {
	var acc trap.Accumulator
	return []harness.Case{
		{
			Name:      "machine timer irq",
			Component: compTrap,
			Setup: func(env *harness.Env) error {
				h := env.Hart
				setTimeCmp(h, ^uint64(0))
				setTime(h, 0)
				h.WriteCSR(hart.CSRMip, 0)
				setTimeCmp(h, 0x1_00000000)
				return nil
			},
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				setTime(env.Hart, 0xFFFFFFFE)
				env.Settle(4)
				return nil
			},
			Assert: expectTrap(trap.MTI),
			Cleanup: func(env *harness.Env) {
				setTimeCmp(env.Hart, ^uint64(0))
			},
		},
		{
			Name:      "machine software irq",
			Component: compInject,
			Stimulus:  trigger(inject.MSI),
			Assert:    expectTrap(trap.MSI),
		},
		{
			Name:      "machine external irq",
			Component: compInject,
			Stimulus:  trigger(inject.MEI),
			Assert:    expectTrap(trap.MEI),
		},
		{
			Name:      "non-maskable irq",
			Component: compInject,
			Stimulus:  trigger(inject.NMI),
			Assert:    expectTrap(trap.NMI),
		},
		{
			Name:       "watchdog firq",
			Component:  compIO,
			Applies:    feature(hart.FeatureWDT),
			SkipReason: "not implemented",
			Setup: func(env *harness.Env) error {
				h := env.Hart
				h.SetCSR(hart.CSRMie, firqMask(hart.FIRQWDT))
				// Prescaler 4096, interrupt mode, locked.
				h.Store(hart.WDTCT, hart.WDTCtEnable|7<<hart.WDTCtPrscShift|hart.WDTCtLock)
				return nil
			},
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				h := env.Hart
				// Locked: this write must be ignored.
				h.Store(hart.WDTCT, 0)
				h.Store(hart.WDTCT, h.Load(hart.WDTCT)|hart.WDTCtForce)
				env.Settle(2)
				return nil
			},
			Assert: expectTrap(trap.FIRQ(hart.FIRQWDT)),
			Cleanup: func(env *harness.Env) {
				env.Hart.Store(hart.WDTCT, 0)
				disableFIRQ(env.Hart, hart.FIRQWDT)
			},
		},
		{
			// The custom function subsystem has no generic trigger.
			Name:       "cfs firq",
			Component:  compIO,
			Applies:    never,
			SkipReason: "no trigger on the reference device",
		},
		uartCase("uart0 rx firq", hart.FeatureUART0, hart.UART0CT, hart.UART0Data, hart.FIRQUART0RX, hart.FIRQUART0TX),
		uartCase("uart0 tx firq", hart.FeatureUART0, hart.UART0CT, hart.UART0Data, hart.FIRQUART0TX, hart.FIRQUART0RX),
		uartCase("uart1 rx firq", hart.FeatureUART1, hart.UART1CT, hart.UART1Data, hart.FIRQUART1RX, hart.FIRQUART1TX),
		uartCase("uart1 tx firq", hart.FeatureUART1, hart.UART1CT, hart.UART1Data, hart.FIRQUART1TX, hart.FIRQUART1RX),
		{
			Name:       "spi firq",
			Component:  compIO,
			Applies:    feature(hart.FeatureSPI),
			SkipReason: "not implemented",
			Setup:      enableFIRQ(hart.FIRQSPI),
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				h := env.Hart
				h.Store(hart.SPICT, hart.SPICtEnable)
				h.Store(hart.SPIData, 0)
				waitIdle(h, hart.SPICT, hart.SPICtBusy)
				env.Settle(2)
				return nil
			},
			Assert: expectTrap(trap.FIRQ(hart.FIRQSPI)),
			Cleanup: func(env *harness.Env) {
				env.Hart.Store(hart.SPICT, 0)
				disableFIRQ(env.Hart, hart.FIRQSPI)
			},
		},
		{
			Name:       "twi firq",
			Component:  compIO,
			Applies:    feature(hart.FeatureTWI),
			SkipReason: "not implemented",
			Setup:      enableFIRQ(hart.FIRQTWI),
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				h := env.Hart
				h.Store(hart.TWICT, hart.TWICtEnable)
				h.Store(hart.TWICT, hart.TWICtEnable|hart.TWICtStart)
				waitIdle(h, hart.TWICT, hart.TWICtBusy)
				h.Store(hart.TWIData, 0xA5)
				waitIdle(h, hart.TWICT, hart.TWICtBusy)
				h.Store(hart.TWICT, hart.TWICtEnable|hart.TWICtStop)
				waitIdle(h, hart.TWICT, hart.TWICtBusy)
				env.Settle(2)
				return nil
			},
			Assert: expectTrap(trap.FIRQ(hart.FIRQTWI)),
			Cleanup: func(env *harness.Env) {
				env.Hart.Store(hart.TWICT, 0)
				disableFIRQ(env.Hart, hart.FIRQTWI)
			},
		},
		{
			Name:       "xirq channel ordering",
			Component:  compTrap,
			Applies:    feature(hart.FeatureXIRQ),
			SkipReason: "not implemented",
			Setup: func(env *harness.Env) error {
				acc = trap.Accumulator{}
				if err := env.Obs.InstallOrdering(&acc); err != nil {
					return err
				}
				h := env.Hart
				h.Store(hart.GPIOOut, 0)
				h.Store(hart.XIRQIPR, 0)
				h.Store(hart.XIRQIER, 3)
				h.SetCSR(hart.CSRMie, firqMask(hart.FIRQXIRQ))
				return nil
			},
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				// Both channels rise in the same instruction.
				env.Hart.Store(hart.GPIOOut, 3)
				env.Settle(3)
				obs.Set("accumulator", acc.Value)
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).Trap(trap.FIRQ(hart.FIRQXIRQ)).Value("accumulator", 4).Err()
			},
			Cleanup: func(env *harness.Env) {
				h := env.Hart
				h.Store(hart.XIRQIER, 0)
				h.Store(hart.XIRQIPR, 0)
				h.Store(hart.GPIOOut, 0)
				disableFIRQ(h, hart.FIRQXIRQ)
				env.Obs.ClearXIRQ()
			},
		},
		{
			Name:       "neoled firq",
			Component:  compIO,
			Applies:    feature(hart.FeatureNEOLED),
			SkipReason: "not implemented",
			Setup:      enableFIRQ(hart.FIRQNEOLED),
			Stimulus: func(env *harness.Env, _ *harness.Observation) error {
				h := env.Hart
				h.Store(hart.NEOLEDCT, hart.NEOLEDCtEnable)
				h.Store(hart.NEOLEDData, 0)
				waitIdle(h, hart.NEOLEDCT, hart.NEOLEDCtBusy)
				env.Settle(2)
				return nil
			},
			Assert: expectTrap(trap.FIRQ(hart.FIRQNEOLED)),
			Cleanup: func(env *harness.Env) {
				env.Hart.Store(hart.NEOLEDCT, 0)
				disableFIRQ(env.Hart, hart.FIRQNEOLED)
			},
		},
		{
			Name:       "slink firq",
			Component:  compIO,
			Applies:    feature(hart.FeatureSLINK),
			SkipReason: "not implemented",
			Setup: func(env *harness.Env) error {
				env.Hart.SetCSR(hart.CSRMie, firqMask(hart.FIRQSLINKRX, hart.FIRQSLINKTX))
				env.Hart.Store(hart.SLINKCT, hart.SLINKCtEnable)
				return nil
			},
			Stimulus: func(env *harness.Env, obs *harness.Observation) error {
				h := env.Hart
				if h.Load(hart.SLINKStatus)&hart.SLINKStatusTX0Free != 0 {
					h.Store(hart.SLINKData0, SLINKPattern)
				}
				env.Settle(2)
				if h.Load(hart.SLINKStatus)&hart.SLINKStatusRX0 != 0 {
					obs.Set("rx", h.Load(hart.SLINKData0))
				}
				return nil
			},
			Assert: func(_ *harness.Env, obs harness.Observation) error {
				return harness.Expect(obs).
					TrapAny(trap.FIRQ(hart.FIRQSLINKRX), trap.FIRQ(hart.FIRQSLINKTX)).
					Value("rx", SLINKPattern).
					Err()
			},
			Cleanup: func(env *harness.Env) {
				env.Hart.Store(hart.SLINKCT, 0)
				disableFIRQ(env.Hart, hart.FIRQSLINKRX, hart.FIRQSLINKTX)
			},
		},
	}
}
