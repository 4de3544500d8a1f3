package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/docopt/docopt-go"

	"golang.org/x/term"

	"github.com/ufolab/uplink/uplink"
)

const UplinkCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `Uplink control.

Poll an instruction endpoint, or watch it on an interval with the full
engine, or stream broadcasts from a push channel endpoint.

Usage:
    uplinkctl poll --url=<url> [--prefix=<prefix>]
    uplinkctl watch --url=<url> --interval=<seconds> [--prefix=<prefix>]
    uplinkctl push --url=<push_url> --channel=<channel>...

Options:
    -h --help               Show this screen.
    --version               Show version.
    --url=<url>             Endpoint url.
    --prefix=<prefix>       Url prefix applied to every request.
    --interval=<seconds>    Poll cadence in seconds.
    --channel=<channel>     Push channel to subscribe to.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], UplinkCtlVersion)
	if err != nil {
		panic(err)
	}

	if poll_, _ := opts.Bool("poll"); poll_ {
		poll(opts)
	} else if watch_, _ := opts.Bool("watch"); watch_ {
		watch(opts)
	} else if push_, _ := opts.Bool("push"); push_ {
		push(opts)
	}
}

func poll(opts docopt.Opts) {
	url, _ := opts.String("--url")
	prefix, _ := opts.String("--prefix")

	r, err := http.Get(prefix + url)
	if err != nil {
		Err.Fatalf("poll error = %s", err)
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		Err.Fatalf("poll read error = %s", err)
	}

	diagnostic, instructions, err := uplink.DecodeReply(body)
	if diagnostic != "" {
		Err.Printf("ignored content = %s", diagnostic)
	}
	if err != nil {
		Err.Fatalf("reply parse error = %s content = %s", err, string(body))
	}

	human := term.IsTerminal(int(os.Stdout.Fd()))
	for _, in := range instructions {
		printInstruction(in, human)
	}
}

func printInstruction(in *uplink.Instruction, human bool) {
	if human {
		detail := ""
		switch in.Type {
		case uplink.InstructionTypeOutput, uplink.InstructionTypeAttribute, uplink.InstructionTypeClose:
			detail = in.Target
		case uplink.InstructionTypeCall, uplink.InstructionTypeCallbackAdd:
			detail = in.Func
		case uplink.InstructionTypeDataset:
			detail = in.Key
		default:
			detail = in.Id
		}
		Out.Printf("%-16s %s", in.Type, detail)
		return
	}
	data, err := json.Marshal(in)
	if err != nil {
		Err.Printf("marshal error = %s", err)
		return
	}
	Out.Printf("%s", string(data))
}

func watch(opts docopt.Opts) {
	url, _ := opts.String("--url")
	prefix, _ := opts.String("--prefix")
	intervalStr, _ := opts.String("--interval")
	interval, err := strconv.ParseFloat(intervalStr, 64)
	if err != nil {
		Err.Fatalf("bad interval = %s", intervalStr)
	}

	ctx := context.Background()
	runtime := newRuntime(ctx)
	defer runtime.Close()

	runtime.SetUrlPrefix(prefix)
	runtime.Interval("ctl", interval)
	runtime.Get("ctl", url)

	select {}
}

func push(opts docopt.Opts) {
	pushUrl, _ := opts.String("--url")
	channels := opts["--channel"].([]string)

	ctx := context.Background()
	runtime := newRuntime(ctx)
	defer runtime.Close()

	pushChannel := uplink.NewPushChannelWithDefaults(runtime, "push", pushUrl, channels)
	defer pushChannel.Close()

	select {}
}

func newRuntime(ctx context.Context) *uplink.Runtime {
	settings := uplink.DefaultRuntimeSettings()
	settings.Alert = func(message string) {
		Err.Printf("alert: %s", message)
	}
	return uplink.NewRuntime(ctx, newTermDocument(), settings)
}

// termDocument prints every patch that the engine applies. Targets come
// into existence on first reference so any reply can be observed.
type termDocument struct {
	mutex    sync.Mutex
	elements map[string]*termElement
}

func newTermDocument() *termDocument {
	return &termDocument{
		elements: map[string]*termElement{},
	}
}

func (self *termDocument) ElementById(id string) (uplink.Element, bool) {
	self.mutex.Lock()
	defer self.mutex.Unlock()

	element, ok := self.elements[id]
	if !ok {
		element = &termElement{id: id}
		self.elements[id] = element
	}
	return element, true
}

type termElement struct {
	id      string
	content string
}

func (self *termElement) Content() string {
	return self.content
}

func (self *termElement) SetContent(content string) {
	self.content = content
	Out.Printf("%s output %s", stamp(), self.id)
}

func (self *termElement) ScrollOffset() (int, int) {
	return 0, 0
}

func (self *termElement) SetScrollOffset(x int, y int) {
}

func (self *termElement) SetAttribute(name string, value string) {
	Out.Printf("%s attribute %s %s=%q", stamp(), self.id, name, value)
}

func (self *termElement) RemoveAttribute(name string) {
	Out.Printf("%s attribute %s -%s", stamp(), self.id, name)
}

func (self *termElement) SetValue(value string) {
	Out.Printf("%s value %s=%q", stamp(), self.id, value)
}

func (self *termElement) SetChecked(checked bool) {
	Out.Printf("%s checked %s=%v", stamp(), self.id, checked)
}

func (self *termElement) IsCheckbox() bool {
	return true
}

func (self *termElement) Hide() {
	Out.Printf("%s close %s", stamp(), self.id)
}

func stamp() string {
	return fmt.Sprintf("[%s]", time.Now().Format("15:04:05"))
}
