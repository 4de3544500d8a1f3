package uplink

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// Id identifies one engine instance in the diagnostic log, and carries the
// server-assigned session id on the push channel. The string form is the
// dashed uuid layout the push endpoint uses on the wire.
// comparable
type Id [16]byte

func NewId() Id {
	return Id(ulid.Make())
}

// ParseId accepts the dashed wire form and the plain 32 hex digit form.
func ParseId(idStr string) (Id, error) {
	plain := strings.ReplaceAll(idStr, "-", "")
	if len(plain) != 32 {
		return Id{}, fmt.Errorf("cannot parse id %q", idStr)
	}
	var id Id
	if _, err := hex.Decode(id[0:16], []byte(plain)); err != nil {
		return Id{}, err
	}
	return id, nil
}

func (self Id) String() string {
	s := hex.EncodeToString(self[0:16])
	return s[0:8] + "-" + s[8:12] + "-" + s[12:16] + "-" + s[16:20] + "-" + s[20:32]
}

func (self Id) MarshalJSON() ([]byte, error) {
	return []byte(`"` + self.String() + `"`), nil
}

func (self *Id) UnmarshalJSON(src []byte) error {
	if len(src) < 2 || src[0] != '"' || src[len(src)-1] != '"' {
		return fmt.Errorf("invalid id json %s", string(src))
	}
	id, err := ParseId(string(src[1 : len(src)-1]))
	if err != nil {
		return err
	}
	*self = id
	return nil
}
