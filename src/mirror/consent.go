package mirror

// Result codes carried by a Consent.
const (
	ResultOK       = -1
	ResultCanceled = 0
)

// Consent is the opaque grant produced by the capture consent flow. It is
// only good for the projection created from it.
type Consent struct {
	ResultCode int
	Token      string
}

// Granted reports whether the consent allows a projection.
func (c Consent) Granted() bool {
	return c.ResultCode == ResultOK && c.Token != ""
}
