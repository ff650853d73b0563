// Package monitoring turns a memory system into a small web server so its
// counters and component state can be inspected while a simulation runs.
package monitoring

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"

	// Enables profiling endpoints on the default mux.
	_ "net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/memsimlab/memsim/mem/memsys"
)

// A Monitor serves the statistics and internal state of a memory system
// over HTTP.
type Monitor struct {
	system      *memsys.MemSystem
	components  []namedComponent
	portNumber  int
	openBrowser bool
}

type namedComponent struct {
	name      string
	component any
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port the server listens on. Ports below 1000 are
// rejected and replaced with a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is not allowed for the monitoring server, "+
				"using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the monitor page in the default
// browser.
func (m *Monitor) WithBrowser() *Monitor {
	m.openBrowser = true
	return m
}

// RegisterMemSystem registers the memory system whose statistics the
// monitor reports. The translator and hierarchy are also exposed as
// inspectable components.
func (m *Monitor) RegisterMemSystem(s *memsys.MemSystem) {
	m.system = s

	m.RegisterComponent("Translator", s.Translator())
	m.RegisterComponent("L1", s.Hierarchy().L1())
	m.RegisterComponent("L2", s.Hierarchy().L2())
}

// RegisterComponent exposes a component's state under the given name.
func (m *Monitor) RegisterComponent(name string, c any) {
	m.components = append(m.components, namedComponent{name: name, component: c})
}

// StartServer starts serving in the background and returns the address the
// monitor listens on.
func (m *Monitor) StartServer() string {
	r := m.router()
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := "http://localhost:" +
		strconv.Itoa(listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring memory system at %s\n", url)

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			fmt.Fprintf(os.Stderr, "Cannot open browser: %s\n", err)
		}
	}

	go func() {
		dieOnErr(http.Serve(listener, nil))
	}()

	return url
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/stats", m.stats)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.componentDetails)
	r.HandleFunc("/api/resource", m.listResources)

	return r
}

type cacheStats struct {
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRatio float64 `json:"hit_ratio"`
}

type statsRsp struct {
	PageFaults uint64     `json:"page_faults"`
	L1         cacheStats `json:"l1"`
	L2         cacheStats `json:"l2"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	if m.system == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	l1 := m.system.Hierarchy().L1()
	l2 := m.system.Hierarchy().L2()

	rsp := statsRsp{
		PageFaults: m.system.Translator().PageFaults(),
		L1: cacheStats{
			Hits:     l1.Hits(),
			Misses:   l1.Misses(),
			HitRatio: l1.HitRatio(),
		},
		L2: cacheStats{
			Hits:     l2.Hits(),
			Misses:   l2.Misses(),
			HitRatio: l2.HitRatio(),
		},
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.name)
	}

	bytes, err := json.Marshal(names)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) componentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	for _, c := range m.components {
		if c.name != name {
			continue
		}

		serializer := goseth.NewSerializer()
		serializer.SetRoot(c.component)
		serializer.SetMaxDepth(1)

		dieOnErr(serializer.Serialize(w))

		return
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Component not found"))
	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memoryInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
