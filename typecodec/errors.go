package typecodec

import "fmt"

type errUnadvertisedOID uint32

func (e errUnadvertisedOID) Error() string {
	return fmt.Sprintf("typecodec: oid %d is not advertised by this gateway", uint32(e))
}

type errMalformed struct {
	oid  uint32
	want string
}

func (e errMalformed) Error() string {
	return fmt.Sprintf("typecodec: malformed value for oid %d, expected %s", e.oid, e.want)
}
