// internal/infra/ledger/rent.go
package ledger

// Rent mirrors the cluster rent sysvar.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  float64
}

// accountStorageOverhead is charged on top of the data length.
const accountStorageOverhead = 128

var DefaultRent = Rent{
	LamportsPerByteYear: 3480,
	ExemptionThreshold:  2.0,
}

func (r Rent) MinimumBalance(dataLen uint64) uint64 {
	return uint64(float64((accountStorageOverhead+dataLen)*r.LamportsPerByteYear) * r.ExemptionThreshold)
}

func (r Rent) IsExempt(lamports, dataLen uint64) bool {
	return lamports >= r.MinimumBalance(dataLen)
}
