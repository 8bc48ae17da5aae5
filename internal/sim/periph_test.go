package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hartcheck/internal/hart"
)

// enableFIRQ turns on machine interrupts and the given fast channels.
func enableFIRQ(d *Device, channels ...int) {
	var mask uint32
	for _, n := range channels {
		mask |= hart.FIRQEnable(n)
	}
	d.WriteCSR(hart.CSRMie, mask)
	d.SetCSR(hart.CSRMstatus, hart.MstatusMIE)
}

func TestPeripherals_UART(t *testing.T) {
	tests := []struct {
		name    string
		ct      uint32
		data    uint32
		channel int
	}{
		{"uart0 rx", hart.UART0CT, hart.UART0Data, hart.FIRQUART0RX},
		{"uart0 tx", hart.UART0CT, hart.UART0Data, hart.FIRQUART0TX},
		{"uart1 rx", hart.UART1CT, hart.UART1Data, hart.FIRQUART1RX},
		{"uart1 tx", hart.UART1CT, hart.UART1Data, hart.FIRQUART1TX},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, log := newDevice(t, nil)
			enableFIRQ(d, tt.channel)
			d.Store(tt.ct, hart.UARTCtEnable)

			d.Store(tt.data, 0x5A)
			require.NotZero(t, d.Load(tt.ct)&hart.UARTCtTxBusy)
			for i := 0; i < 16; i++ {
				if d.Load(tt.ct)&hart.UARTCtTxBusy == 0 {
					break
				}
			}

			assert.Equal(t, []uint32{hart.CauseFIRQ(tt.channel)}, log.causes)
			assert.Equal(t, uint32(0x5A), d.Load(tt.data), "testbench loops TX back to RX")
		})
	}
}

func TestPeripherals_UARTSimulationMode(t *testing.T) {
	d, log := newDevice(t, nil)
	enableFIRQ(d, hart.FIRQUART0RX, hart.FIRQUART0TX)
	d.Store(hart.UART0CT, hart.UARTCtEnable|hart.UARTCtSimMode)

	for _, c := range "ok\n" {
		d.Store(hart.UART0Data, uint32(c))
	}
	d.Nop(16)

	assert.Equal(t, "ok\n", d.Console())
	assert.Empty(t, log.causes)
}

func TestPeripherals_DisabledUARTIsSilent(t *testing.T) {
	d, log := newDevice(t, nil)
	enableFIRQ(d, hart.FIRQUART0TX)

	d.Store(hart.UART0Data, 0)
	d.Nop(16)

	assert.Empty(t, log.causes)
}

func TestPeripherals_Transfers(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(d *Device)
		channel int
	}{
		{"spi", func(d *Device) {
			d.Store(hart.SPICT, hart.SPICtEnable)
			d.Store(hart.SPIData, 0)
		}, hart.FIRQSPI},
		{"twi start", func(d *Device) {
			d.Store(hart.TWICT, hart.TWICtEnable)
			d.Store(hart.TWICT, hart.TWICtEnable|hart.TWICtStart)
		}, hart.FIRQTWI},
		{"neoled", func(d *Device) {
			d.Store(hart.NEOLEDCT, hart.NEOLEDCtEnable)
			d.Store(hart.NEOLEDData, 0x00FF00)
		}, hart.FIRQNEOLED},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, log := newDevice(t, nil)
			enableFIRQ(d, tt.channel)

			tt.setup(d)
			d.Nop(d.cfg.Latency + 1)

			assert.Equal(t, []uint32{hart.CauseFIRQ(tt.channel)}, log.causes)
		})
	}
}

func TestPeripherals_WatchdogLock(t *testing.T) {
	d, log := newDevice(t, nil)
	enableFIRQ(d, hart.FIRQWDT)

	setup := hart.WDTCtEnable | 7<<hart.WDTCtPrscShift | hart.WDTCtLock
	d.Store(hart.WDTCT, setup)
	d.Store(hart.WDTCT, 0)
	require.Equal(t, setup, d.Load(hart.WDTCT), "locked watchdog keeps its configuration")

	d.Store(hart.WDTCT, d.Load(hart.WDTCT)|hart.WDTCtForce)

	assert.Equal(t, []uint32{hart.CauseFIRQ(hart.FIRQWDT)}, log.causes)
}

func TestPeripherals_XIRQOrdering(t *testing.T) {
	tests := []struct {
		name    string
		reverse bool
		want    []uint32
	}{
		{"lowest channel first", false, []uint32{0, 1}},
		{"reversed", true, []uint32{1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(func() Config {
				c := DefaultConfig()
				c.Faults.ReverseXIRQPriority = tt.reverse
				return c
			}(), nil)
			var served []uint32
			d.SetTrapEntry(func() {
				ch := d.Load(hart.XIRQSCR)
				served = append(served, ch)
				d.Store(hart.XIRQIPR, ^(uint32(1) << ch))
				d.Store(hart.XIRQSCR, 0)
			})
			d.Store(hart.XIRQIER, 3)
			enableFIRQ(d, hart.FIRQXIRQ)

			d.Store(hart.GPIOOut, 3)
			d.Nop(3)

			assert.Equal(t, tt.want, served)
			assert.Zero(t, d.Load(hart.XIRQIPR))
		})
	}
}

func TestPeripherals_XIRQNeedsRisingEdge(t *testing.T) {
	d, log := newDevice(t, nil)
	d.Store(hart.GPIOOut, 1)
	d.Store(hart.XIRQIER, 1)
	enableFIRQ(d, hart.FIRQXIRQ)

	d.Store(hart.GPIOOut, 1)
	d.Nop(2)

	assert.Empty(t, log.causes)
}

func TestPeripherals_SLINKLoopback(t *testing.T) {
	d, log := newDevice(t, nil)
	enableFIRQ(d, hart.FIRQSLINKRX, hart.FIRQSLINKTX)
	d.Store(hart.SLINKCT, hart.SLINKCtEnable)

	require.NotZero(t, d.Load(hart.SLINKStatus)&hart.SLINKStatusTX0Free)
	d.Store(hart.SLINKData0, 0xA1B2C3D4)
	require.NotZero(t, d.Load(hart.SLINKStatus)&hart.SLINKStatusRX0)
	v := d.Load(hart.SLINKData0)

	assert.Equal(t, uint32(0xA1B2C3D4), v)
	assert.Equal(t, []uint32{hart.CauseFIRQ(hart.FIRQSLINKRX), hart.CauseFIRQ(hart.FIRQSLINKTX)}, log.causes)
	assert.Zero(t, d.Load(hart.SLINKStatus)&hart.SLINKStatusRX0)
}

func TestPeripherals_Absent(t *testing.T) {
	d, log := newDevice(t, func(c *Config) { c.Peripherals = Peripherals{} })

	d.Load(hart.UART0CT)
	d.Store(hart.SPIData, 0)

	assert.Equal(t, []uint32{hart.CauseLoadAccess, hart.CauseStoreAccess}, log.causes)
	assert.Zero(t, d.Load(hart.SysinfoFeatures)&hart.FeatureUART0)
}

func TestPeripherals_Sysinfo(t *testing.T) {
	d, _ := newDevice(t, nil)

	features := d.Load(hart.SysinfoFeatures)

	assert.NotZero(t, features&hart.FeatureExtMem)
	assert.NotZero(t, features&hart.FeatureXIRQ)
	assert.Zero(t, features&hart.FeatureCFS)
	assert.Equal(t, hart.DMEMBase, d.Load(hart.SysinfoDSpaceBase))
	assert.Equal(t, clockHz, d.Load(hart.SysinfoClk))
}
