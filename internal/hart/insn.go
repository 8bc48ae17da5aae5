package hart

// Raw instruction words used as stimuli.
const (
	InsnNOP    uint32 = 0x00000013 // addi zero, zero, 0
	InsnECALL  uint32 = 0x00000073
	InsnEBREAK uint32 = 0x00100073
	InsnMRET   uint32 = 0x30200073
	InsnWFI    uint32 = 0x10500073
	InsnFENCE  uint32 = 0x0FF0000F // fence iorw, iorw
	InsnFENCEI uint32 = 0x0000100F
	InsnRET    uint32 = 0x00008067 // jalr zero, 0(ra)
	InsnLRW    uint32 = 0x1005252F // lr.w a0, (a0)
	InsnSCW    uint32 = 0x18B5252F // sc.w a0, a1, (a0)
)

// Compressed parcels.
const (
	InsnCNOP     uint16 = 0x0001
	InsnCIllegal uint16 = 0x0000
	InsnCJRRA    uint16 = 0x8082 // c.jr ra
)

// SYSTEM funct3 values of the Zicsr instructions.
const (
	Funct3CSRRW  = 1
	Funct3CSRRS  = 2
	Funct3CSRRC  = 3
	Funct3CSRRWI = 5
	Funct3CSRRSI = 6
	Funct3CSRRCI = 7
)

// EncodeCSR assembles a Zicsr instruction. src is rs1, or the 5-bit
// immediate for the *I forms.
func EncodeCSR(funct3 int, csr CSR, src, rd uint32) uint32 {
	return uint32(csr)<<20 | (src&0x1f)<<15 | uint32(funct3&7)<<12 | (rd&0x1f)<<7 | 0x73
}

// InsnIllegalCSR is csrrw zero, 0xfff, zero: a write to a CSR that does not
// exist, hence an illegal instruction whose word ends up in mtval.
var InsnIllegalCSR = EncodeCSR(Funct3CSRRW, CSRUnimplemented, 0, 0)
