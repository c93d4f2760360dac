package mm

import "strings"

// MapPermission holds page-table permission flags.
type MapPermission uint8

const (
	PermR MapPermission = 1 << 1
	PermW MapPermission = 1 << 2
	PermX MapPermission = 1 << 3
	PermU MapPermission = 1 << 4
)

// Port bits as passed by user code to mmap.
const (
	PortRead  = 0x1
	PortWrite = 0x2
	PortExec  = 0x4
	portMask  = PortRead | PortWrite | PortExec
)

// PermissionFromPort converts user port bits to mapping flags. Bits outside
// read/write/execute and an empty port are rejected. The result always
// carries PermU.
func PermissionFromPort(port uint64) (MapPermission, error) {
	if port&^portMask != 0 || port&portMask == 0 {
		return 0, ErrBadPermission
	}
	return MapPermission(port<<1) | PermU, nil
}

// Has reports whether every flag in q is set.
func (p MapPermission) Has(q MapPermission) bool { return p&q == q }

func (p MapPermission) String() string {
	var b strings.Builder
	for _, f := range []struct {
		bit MapPermission
		c   byte
	}{{PermR, 'r'}, {PermW, 'w'}, {PermX, 'x'}, {PermU, 'u'}} {
		if p.Has(f.bit) {
			b.WriteByte(f.c)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
