package core

// TMC2660 Register Definitions
// Based on TMC2660 datasheet Rev. 1.08
// Trinamic Motion Control GmbH & Co. KG
//
// Every datagram is 20 bits. The register address lives in bits 19..17
// (DRVCTRL with SDOFF=0 is address 0). Replies are 20 bits too; with
// RDSEL=1 they carry the stallGuard2 load in bits 19..10.

// TMC2660 Register Addresses
const (
	TMC2660_REG_DRVCTRL  = 0x00000 // Driver control (step/dir mode)
	TMC2660_REG_CHOPCONF = 0x80000 // Chopper configuration
	TMC2660_REG_SMARTEN  = 0xA0000 // coolStep configuration
	TMC2660_REG_SGCSCONF = 0xC0000 // stallGuard2 and current scale
	TMC2660_REG_DRVCONF  = 0xE0000 // Driver configuration

	TMC2660_DATA_MASK = 0x0001FFFF // Payload bits below the address
)

// TMC2660 DRVCTRL Register Bit Definitions (SDOFF=0)
const (
	TMC2660_DRVCTRL_MRES_MASK  = 0x0F
	TMC2660_DRVCTRL_MRES_SHIFT = 0
	TMC2660_DRVCTRL_MRES_16    = 0x04
	TMC2660_DRVCTRL_DEDGE      = 1 << 8 // Step on both edges
	TMC2660_DRVCTRL_INTPOL     = 1 << 9 // Interpolate to 256 microsteps
)

// TMC2660 CHOPCONF Register Bit Definitions
const (
	TMC2660_CHOPCONF_TOFF_MASK  = 0x0F
	TMC2660_CHOPCONF_TOFF_SHIFT = 0
	TMC2660_CHOPCONF_HSTRT_MASK = 0x07 << 4
	TMC2660_CHOPCONF_HEND_MASK  = 0x0F << 7
	TMC2660_CHOPCONF_HDEC_MASK  = 0x03 << 11
	TMC2660_CHOPCONF_RNDTF      = 1 << 13 // Random off time
	TMC2660_CHOPCONF_CHM        = 1 << 14 // Constant off time chopper mode
	TMC2660_CHOPCONF_TBL_MASK   = 0x03 << 15
	TMC2660_CHOPCONF_TBL_SHIFT  = 15
)

// TMC2660 SGCSCONF Register Bit Definitions
const (
	TMC2660_SGCSCONF_CS_MASK   = 0x1F
	TMC2660_SGCSCONF_SGT_MASK  = 0x7F << 8
	TMC2660_SGCSCONF_SGT_SHIFT = 8
	TMC2660_SGCSCONF_SFILT     = 1 << 16 // stallGuard2 filter
)

// TMC2660 DRVCONF Register Bit Definitions
const (
	TMC2660_DRVCONF_RDSEL_MASK = 0x03 << 4
	TMC2660_DRVCONF_RDSEL_SG   = 1 << 4 // Read back the stallGuard2 load
	TMC2660_DRVCONF_VSENSE     = 1 << 6 // High sensitivity sense range
	TMC2660_DRVCONF_SDOFF      = 1 << 7
	TMC2660_DRVCONF_TS2G_0P8   = 3 << 8 // Fastest short to ground detection
	TMC2660_DRVCONF_DISS2G     = 1 << 10
)

// TMC2660 read response bit definitions
const (
	TMC2660_RR_SG         = 1 << 0 // stallGuard2 threshold reached
	TMC2660_RR_OT         = 1 << 1 // Overtemperature shutdown
	TMC2660_RR_OTPW       = 1 << 2 // Overtemperature pre-warning
	TMC2660_RR_S2G        = 3 << 3 // Short to ground, both phases
	TMC2660_RR_OLA        = 1 << 5 // Open load phase A
	TMC2660_RR_OLB        = 1 << 6 // Open load phase B
	TMC2660_RR_STST       = 1 << 7 // Standstill
	TMC2660_RR_LOAD_SHIFT = 10
	TMC2660_RR_LOAD_MASK  = 0x3FF
)

// DrvCtrl is the DRVCTRL register value.
type DrvCtrl uint32

// MicrostepShift returns log2 of the microstep resolution encoded in MRES.
func (r DrvCtrl) MicrostepShift() uint32 {
	return 8 - (uint32(r)&TMC2660_DRVCTRL_MRES_MASK)>>TMC2660_DRVCTRL_MRES_SHIFT
}

// Interpolate reports whether the INTPOL bit is set.
func (r DrvCtrl) Interpolate() bool {
	return uint32(r)&TMC2660_DRVCTRL_INTPOL != 0
}

// WithMicrostepping returns r with 1<<shift microsteps and interpolation set.
// shift must already be in 0..8.
func (r DrvCtrl) WithMicrostepping(shift uint32, interpolate bool) DrvCtrl {
	v := uint32(r) &^ TMC2660_DRVCTRL_MRES_MASK
	v |= ((8 - shift) << TMC2660_DRVCTRL_MRES_SHIFT) & TMC2660_DRVCTRL_MRES_MASK
	if interpolate {
		v |= TMC2660_DRVCTRL_INTPOL
	} else {
		v &^= TMC2660_DRVCTRL_INTPOL
	}
	return DrvCtrl(v)
}

// ChopConf is the CHOPCONF register value.
type ChopConf uint32

// NewChopConf builds a chopper value from its fields.
func NewChopConf(toff, hstrt, hend, hdec, tbl uint32) ChopConf {
	return ChopConf(TMC2660_REG_CHOPCONF |
		(toff&0x0F)<<0 |
		(hstrt&0x07)<<4 |
		(hend&0x0F)<<7 |
		(hdec&0x03)<<11 |
		(tbl&0x03)<<15)
}

// OffTime returns the TOFF field.
func (c ChopConf) OffTime() uint32 {
	return (uint32(c) & TMC2660_CHOPCONF_TOFF_MASK) >> TMC2660_CHOPCONF_TOFF_SHIFT
}

// BlankTime returns the TBL field.
func (c ChopConf) BlankTime() uint32 {
	return (uint32(c) & TMC2660_CHOPCONF_TBL_MASK) >> TMC2660_CHOPCONF_TBL_SHIFT
}

// WithOffTime returns c with the TOFF field replaced.
func (c ChopConf) WithOffTime(toff uint32) ChopConf {
	return ChopConf(uint32(c)&^TMC2660_CHOPCONF_TOFF_MASK | (toff<<TMC2660_CHOPCONF_TOFF_SHIFT)&TMC2660_CHOPCONF_TOFF_MASK)
}

// Valid reports whether the chip accepts c. TOFF=0 turns the bridges off,
// and TOFF=1 is only allowed with a non-zero blanking time.
func (c ChopConf) Valid() bool {
	toff := c.OffTime()
	return toff != 0 && !(toff == 1 && c.BlankTime() == 0)
}

// Mode decodes the CHM and RNDTF bits.
func (c ChopConf) Mode() DriverMode {
	switch {
	case uint32(c)&TMC2660_CHOPCONF_CHM == 0:
		return DriverModeSpreadCycle
	case uint32(c)&TMC2660_CHOPCONF_RNDTF == 0:
		return DriverModeConstantOffTime
	default:
		return DriverModeRandomOffTime
	}
}

// SGCSConf is the SGCSCONF register value.
type SGCSConf uint32

// CurrentScale returns the CS field.
func (r SGCSConf) CurrentScale() uint32 {
	return uint32(r) & TMC2660_SGCSCONF_CS_MASK
}

// WithCurrentScale returns r with the CS field replaced.
func (r SGCSConf) WithCurrentScale(cs uint32) SGCSConf {
	return SGCSConf(uint32(r)&^TMC2660_SGCSCONF_CS_MASK | cs&TMC2660_SGCSCONF_CS_MASK)
}

// StallThreshold returns the signed 7-bit SGT field.
func (r SGCSConf) StallThreshold() int {
	t := int((uint32(r) & TMC2660_SGCSCONF_SGT_MASK) >> TMC2660_SGCSCONF_SGT_SHIFT)
	if t >= 64 {
		t -= 128
	}
	return t
}

// WithStallThreshold returns r with SGT set to threshold clamped to -64..63.
func (r SGCSConf) WithStallThreshold(threshold int) SGCSConf {
	if threshold < -64 {
		threshold = -64
	} else if threshold > 63 {
		threshold = 63
	}
	sgt := uint32(threshold) & 0x7F
	return SGCSConf(uint32(r)&^TMC2660_SGCSCONF_SGT_MASK | sgt<<TMC2660_SGCSCONF_SGT_SHIFT)
}

// Filtered reports whether the stallGuard2 filter is on.
func (r SGCSConf) Filtered() bool {
	return uint32(r)&TMC2660_SGCSCONF_SFILT != 0
}

// WithFilter returns r with SFILT set or cleared.
func (r SGCSConf) WithFilter(on bool) SGCSConf {
	if on {
		return r | TMC2660_SGCSCONF_SFILT
	}
	return r &^ TMC2660_SGCSCONF_SFILT
}

// DrvConf is the DRVCONF register value.
type DrvConf uint32

// SmartEn is the SMARTEN (coolStep) register value.
type SmartEn uint32

// Config returns the 16 configuration bits below the address.
func (r SmartEn) Config() uint16 {
	return uint16(r)
}

// Status is a decoded read response.
type Status uint32

// Status flags
const (
	StatusStall           Status = TMC2660_RR_SG
	StatusOverTemp        Status = TMC2660_RR_OT
	StatusOverTempWarning Status = TMC2660_RR_OTPW
	StatusShortToGround   Status = TMC2660_RR_S2G
	StatusOpenLoadA       Status = TMC2660_RR_OLA
	StatusOpenLoadB       Status = TMC2660_RR_OLB
	StatusStandstill      Status = TMC2660_RR_STST
)

// StatusAll masks every flag bit of a Status.
const StatusAll = StatusStall | StatusOverTemp | StatusOverTempWarning |
	StatusShortToGround | StatusOpenLoadA | StatusOpenLoadB | StatusStandstill

// Load returns the 10-bit stallGuard2 load reading.
func (s Status) Load() uint32 {
	return (uint32(s) >> TMC2660_RR_LOAD_SHIFT) & TMC2660_RR_LOAD_MASK
}

// Flags strips the load reading.
func (s Status) Flags() Status {
	return s & StatusAll
}

// decodeResponse extracts the 20-bit reply from the 24 bits clocked in
// while the 24-bit datagram was shifted out.
func decodeResponse(raw uint32) Status {
	return Status((raw & 0xFFFFFF) >> 4)
}

// Register defaults
const (
	defaultDrvCtrl  = TMC2660_REG_DRVCTRL | TMC2660_DRVCTRL_MRES_16 | TMC2660_DRVCTRL_INTPOL
	defaultSGCSConf = TMC2660_REG_SGCSCONF | (DefaultStallThreshold&0x7F)<<TMC2660_SGCSCONF_SGT_SHIFT
	defaultDrvConf  = TMC2660_REG_DRVCONF | TMC2660_DRVCONF_RDSEL_SG | TMC2660_DRVCONF_VSENSE | TMC2660_DRVCONF_TS2G_0P8
	defaultSmartEn  = TMC2660_REG_SMARTEN // coolStep off until tuned to the motor
)

// defaultChopConf is the datasheet spreadCycle example, TOFF about 9.2us.
var defaultChopConf = NewChopConf(4, 3, 3, 0, 2)
