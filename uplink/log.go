package uplink

import (
	"github.com/golang/glog"
)

// Logging convention in the `uplink` package:
// Info:
//     essential events for abnormal behavior. This level should be silent on normal operation.
//     this includes:
//     - replies that cannot be decoded
//     - references to unknown callback names or missing patch targets
//     - push channel reconnects
// V(2):
//     key events for trace debugging
//     this includes:
//     - per request and per instruction events with connection ids that can be used to filter

// surfaces a message directly to the user, outside the diagnostic log.
// the hosting application typically maps this to a modal or a toast.
type AlertFunction func(message string)

func defaultAlert(message string) {
	glog.Warningf("[alert]%s\n", message)
}
