package trap

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hartcheck/internal/hart"
	"github.com/roach88/hartcheck/internal/sim"
)

func newObservatory(t *testing.T, mutate func(*sim.Config)) (*sim.Device, *Observatory) {
	t.Helper()
	cfg := sim.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	d := sim.New(cfg, nil)
	o := New(d, nil)
	o.InstallDefaults()
	return d, o
}

func TestObservatory_RecordsSynchronousTraps(t *testing.T) {
	tests := []struct {
		name  string
		fire  func(h hart.Hart)
		cause Cause
		aux   uint32
	}{
		{"breakpoint", func(h hart.Hart) { h.Exec(hart.InsnEBREAK) }, Breakpoint, 0},
		{"illegal", func(h hart.Hart) { h.Exec(hart.InsnIllegalCSR) }, Illegal, hart.InsnIllegalCSR},
		{"ecall", func(h hart.Hart) { h.Exec(hart.InsnECALL) }, EcallM, 0},
		{"load misaligned", func(h hart.Hart) { h.Load(hart.AddrUnaligned) }, LoadMisaligned, hart.AddrUnaligned},
		{"store access", func(h hart.Hart) { h.Store(hart.AddrUnreachable, 0) }, StoreAccess, hart.AddrUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, o := newObservatory(t, nil)
			o.Arm()

			tt.fire(d)
			rec := o.Read()

			require.True(t, rec.Occurred)
			assert.Equal(t, tt.cause, rec.Cause)
			assert.Equal(t, 1, rec.Count)
			assert.Equal(t, hart.Machine, rec.FromMode)
			if tt.cause != Breakpoint {
				assert.Equal(t, tt.aux, rec.Aux)
			}
		})
	}
}

func TestObservatory_ArmClears(t *testing.T) {
	d, o := newObservatory(t, nil)
	d.Exec(hart.InsnEBREAK)
	require.True(t, o.Read().Occurred)

	o.Arm()

	assert.Equal(t, Record{}, o.Read())
	assert.Zero(t, d.ReadCSR(hart.CSRMcause))
}

func TestObservatory_NoTrap(t *testing.T) {
	d, o := newObservatory(t, nil)
	o.Arm()

	d.Exec(hart.InsnFENCE)

	rec := o.Read()
	assert.False(t, rec.Occurred)
	assert.Equal(t, None, rec.Cause)
}

func TestObservatory_ReturnsToMachineMode(t *testing.T) {
	d, o := newObservatory(t, nil)
	o.Arm()

	d.EnterUser()
	require.Equal(t, hart.User, d.Mode())
	d.Exec(hart.InsnECALL)

	rec := o.Read()
	assert.Equal(t, EcallU, rec.Cause)
	assert.Equal(t, hart.User, rec.FromMode, "record keeps the mode the trap came from")
	assert.Equal(t, hart.Machine, d.Mode())
}

func TestObservatory_WrongPreviousModeIsNotMasked(t *testing.T) {
	d, o := newObservatory(t, func(c *sim.Config) { c.Faults.WrongPreviousMode = true })
	o.Arm()

	d.EnterUser()
	d.Exec(hart.InsnECALL)

	assert.Equal(t, hart.Machine, o.Read().FromMode)
	assert.Equal(t, hart.Machine, d.Mode())
}

func TestObservatory_HandlerDispatch(t *testing.T) {
	d, o := newObservatory(t, nil)
	var got []Cause
	require.NoError(t, o.Install(Breakpoint, func(rec Record) { got = append(got, rec.Cause) }))

	d.Exec(hart.InsnEBREAK)
	d.Exec(hart.InsnECALL)

	assert.Equal(t, []Cause{Breakpoint}, got)
}

func TestObservatory_InstallErrors(t *testing.T) {
	_, o := newObservatory(t, nil)

	tests := []struct {
		name    string
		vector  Cause
		handler Handler
	}{
		{"none", None, Default},
		{"negative", Cause(-1), Default},
		{"past last channel", Cause(NumVectors + 1), Default},
		{"nil handler", Breakpoint, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := o.Install(tt.vector, tt.handler)
			require.Error(t, err)
			assert.True(t, IsInstallError(err))
		})
	}

	assert.True(t, IsInstallError(o.Uninstall(None)))
	assert.True(t, IsInstallError(o.InstallXIRQ(hart.NumXIRQ, func() {})))
	assert.True(t, IsInstallError(o.InstallXIRQ(0, nil)))
}

func TestObservatory_DebugHandlerFallback(t *testing.T) {
	var buf bytes.Buffer
	d := sim.New(sim.DefaultConfig(), nil)
	o := New(d, slog.New(slog.NewTextHandler(&buf, nil)))
	o.InstallDefaults()
	require.NoError(t, o.Uninstall(Illegal))
	require.False(t, o.Installed(Illegal))
	o.Arm()

	d.ReadCSR(hart.CSRUnimplemented)

	rec := o.Read()
	assert.Equal(t, Illegal, rec.Cause)
	assert.NotZero(t, d.ReadCSR(hart.CSRMcause))
	assert.Contains(t, buf.String(), "trap on uninstalled vector")
	assert.Contains(t, buf.String(), "mcause=0x00000002")
	assert.Equal(t, hart.Machine, d.Mode())
}

func TestObservatory_Mute(t *testing.T) {
	d, o := newObservatory(t, nil)
	o.Arm()

	o.Mute(func() {
		d.EnterUser()
		d.Exec(hart.InsnECALL)
	})

	assert.False(t, o.Read().Occurred)
	assert.Equal(t, hart.Machine, d.Mode())
}

func TestObservatory_Interrupts(t *testing.T) {
	d, o := newObservatory(t, nil)
	d.WriteCSR(hart.CSRMie, hart.MieMSIE)
	d.SetCSR(hart.CSRMstatus, hart.MstatusMIE)
	o.Arm()

	d.Store(hart.SimIRQ, hart.SimLineMSI)
	d.Nop(2)

	assert.Equal(t, MSI, o.Read().Cause)
}

func TestObservatory_XIRQOrdering(t *testing.T) {
	d, o := newObservatory(t, nil)
	var acc Accumulator
	require.NoError(t, o.InstallOrdering(&acc))
	d.Store(hart.XIRQIER, 3)
	d.WriteCSR(hart.CSRMie, hart.FIRQEnable(hart.FIRQXIRQ))
	d.SetCSR(hart.CSRMstatus, hart.MstatusMIE)
	o.Arm()

	d.Store(hart.GPIOOut, 3)
	d.Nop(3)

	assert.Equal(t, uint32(4), acc.Value)
	assert.Equal(t, []int{0, 1}, acc.Order)
	assert.Equal(t, FIRQ(hart.FIRQXIRQ), o.Read().Cause)
	assert.Zero(t, d.Load(hart.XIRQIPR))

	o.ClearXIRQ()
	assert.True(t, o.Installed(FIRQ(hart.FIRQXIRQ)))
}

func TestObservatory_XIRQReversedPriority(t *testing.T) {
	d, o := newObservatory(t, func(c *sim.Config) { c.Faults.ReverseXIRQPriority = true })
	var acc Accumulator
	require.NoError(t, o.InstallOrdering(&acc))
	d.Store(hart.XIRQIER, 3)
	d.WriteCSR(hart.CSRMie, hart.FIRQEnable(hart.FIRQXIRQ))
	d.SetCSR(hart.CSRMstatus, hart.MstatusMIE)

	d.Store(hart.GPIOOut, 3)
	d.Nop(3)

	assert.Equal(t, uint32(2), acc.Value, "0*2+2 when channel 1 runs first")
	assert.Equal(t, []int{1, 0}, acc.Order)
}
