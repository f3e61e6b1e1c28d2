package hwcodec

import (
	"sync"
)

// driverMeta contains static metadata about a driver.
type driverMeta struct {
	Name          string
	Vendor        string
	Library       string // shared library base name, without prefix/extension
	Prefix        string // native symbol prefix
	SupportSymbol string // optional int(void) export, 0 when the vendor runtime is installed
	Candidates    []Candidate
}

// Static metadata table, indexed by Driver.
var driverInfo = [driverCount]driverMeta{
	DriverNV: {"nv", "NVIDIA", "hwcodec_nv", "nv", "", []Candidate{
		{DataFormatH264, APIDX11},
		{DataFormatH265, APIDX11},
	}},
	DriverAMF: {"amf", "AMD", "hwcodec_amf", "amf", "", []Candidate{
		{DataFormatH264, APIDX11},
		{DataFormatH265, APIDX11},
	}},
	DriverVPL: {"vpl", "Intel", "hwcodec_vpl", "mfx", "mfx_driver_support", []Candidate{
		{DataFormatH264, APIDX11},
		{DataFormatH265, APIDX11},
	}},
}

// Vendor returns the GPU vendor behind the driver.
func (d Driver) Vendor() string {
	if !d.Valid() {
		return "unknown"
	}
	return driverInfo[d].Vendor
}

// Candidates returns the static list of (format, API) pairs the driver
// might support.
func (d Driver) Candidates() []Candidate {
	if !d.Valid() {
		return nil
	}
	out := make([]Candidate, len(driverInfo[d].Candidates))
	copy(out, driverInfo[d].Candidates)
	return out
}

// LibraryName returns the platform file name of the driver's native library.
func (d Driver) LibraryName() string {
	if !d.Valid() {
		return ""
	}
	return nativeLibName(driverInfo[d].Library)
}

// Available reports whether the driver is registered in the default registry.
func (d Driver) Available() bool {
	_, ok := defaultRegistry.calls(d)
	return ok
}

// backend is a registered driver: its call table and candidate list.
type backend struct {
	calls      CallTable
	candidates []Candidate
}

// Registry maps drivers to their call tables. The zero value is empty and
// ready to use.
type Registry struct {
	mu       sync.RWMutex
	backends map[Driver]backend
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry populated with the native drivers
// that loaded successfully.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register installs calls for driver with the driver's static candidate list.
func (r *Registry) Register(driver Driver, calls CallTable) {
	r.RegisterCandidates(driver, calls, driver.Candidates())
}

// RegisterCandidates installs calls for driver with an explicit candidate list.
func (r *Registry) RegisterCandidates(driver Driver, calls CallTable, candidates []Candidate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.backends == nil {
		r.backends = make(map[Driver]backend)
	}
	r.backends[driver] = backend{calls: calls, candidates: candidates}
}

// Unregister removes driver from the registry.
func (r *Registry) Unregister(driver Driver) {
	r.mu.Lock()
	delete(r.backends, driver)
	r.mu.Unlock()
}

// Drivers returns the registered drivers in preference order.
func (r *Registry) Drivers() []Driver {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Driver
	for _, d := range Drivers {
		if _, ok := r.backends[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

func (r *Registry) calls(driver Driver) (CallTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[driver]
	return b.calls, ok
}

func (r *Registry) lookup(driver Driver) (backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[driver]
	return b, ok
}
