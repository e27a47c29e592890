//go:build linux

package joydev

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/Alia5/CONDUIT/source"
)

const inputDir = "/dev/input"

// JSIOCGNAME(128), JSIOCGAXES and JSIOCGBUTTONS from linux/joystick.h.
const (
	iocName    = 0x80006a13 | 128<<16
	iocAxes    = 0x80016a11
	iocButtons = 0x80016a12
)

// Provider owns every open joystick under /dev/input and watches the
// directory for hotplug. Each device gets a blocking reader goroutine; the
// hub pulls the folded state through Snapshot.
type Provider struct {
	log *slog.Logger

	mu      sync.Mutex
	devices map[string]*device
	nextID  source.ID

	inotify   int
	closed    chan struct{}
	closeOnce sync.Once
}

type device struct {
	id      source.ID
	path    string
	name    string
	axes    uint8
	buttons uint8
	f       *os.File

	mu   sync.Mutex
	acc  Accumulator
	gone bool
}

// DeviceInfo describes one attached joystick.
type DeviceInfo struct {
	ID      source.ID
	Path    string
	Name    string
	Axes    int
	Buttons int
}

// Open scans /dev/input for joystick nodes and starts the hotplug watcher.
func Open(logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Provider{
		log:     logger,
		devices: make(map[string]*device),
		closed:  make(chan struct{}),
	}

	fd, err := unix.InotifyInit1(unix.IN_CLOEXEC | unix.IN_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("inotify init: %w", err)
	}
	if _, err := unix.InotifyAddWatch(fd, inputDir, unix.IN_CREATE|unix.IN_ATTRIB|unix.IN_DELETE); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("watch %s: %w", inputDir, err)
	}
	p.inotify = fd

	entries, err := os.ReadDir(inputDir)
	if err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("scan %s: %w", inputDir, err)
	}
	for _, entry := range entries {
		if isJoystick(entry.Name()) {
			p.attach(entry.Name())
		}
	}

	go p.watch()
	return p, nil
}

func isJoystick(name string) bool {
	return strings.HasPrefix(name, "js")
}

// Snapshot returns the current reading of every tracked joystick. Devices
// whose stream has ended are reported with a terminal phase exactly once
// and then dropped.
func (p *Provider) Snapshot(now time.Time) *source.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := &source.Snapshot{Time: now}
	for path, d := range p.devices {
		d.mu.Lock()
		sample := d.acc.Sample()
		gone := d.gone
		d.mu.Unlock()

		st := source.State{
			ID:      d.id,
			Family:  source.FamilyGamepad,
			Hand:    source.HandNone,
			Phase:   source.PhaseActive,
			Gamepad: &sample,
		}
		if gone {
			st.Phase = source.PhaseEnded
			delete(p.devices, path)
		}
		snap.Sources = append(snap.Sources, st)
	}
	sort.Slice(snap.Sources, func(i, j int) bool {
		return snap.Sources[i].ID < snap.Sources[j].ID
	})
	return snap
}

// Devices lists the attached joysticks.
func (p *Provider) Devices() []DeviceInfo {
	p.mu.Lock()
	defer p.mu.Unlock()

	infos := make([]DeviceInfo, 0, len(p.devices))
	for _, d := range p.devices {
		infos = append(infos, DeviceInfo{
			ID:      d.id,
			Path:    d.path,
			Name:    d.name,
			Axes:    int(d.axes),
			Buttons: int(d.buttons),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Close stops the watcher and closes every device node, unblocking the
// readers.
func (p *Provider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.closed)
		err = unix.Close(p.inotify)

		p.mu.Lock()
		open := make([]*device, 0, len(p.devices))
		for path, d := range p.devices {
			open = append(open, d)
			delete(p.devices, path)
		}
		p.mu.Unlock()

		for _, d := range open {
			_ = d.f.Close()
		}
	})
	return err
}

// attach opens a joystick node and starts its reader. Already-tracked
// paths are left alone, so the IN_ATTRIB spray from udev is harmless.
func (p *Provider) attach(name string) {
	path := filepath.Join(inputDir, name)
	p.mu.Lock()
	_, tracked := p.devices[path]
	p.mu.Unlock()
	if tracked {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		p.log.Debug("Joystick open failed", "path", path, "error", err)
		return
	}
	d := &device{path: path, f: f}
	if err := d.identify(); err != nil {
		p.log.Warn("Joystick ioctl failed", "path", path, "error", err)
		_ = f.Close()
		return
	}

	p.mu.Lock()
	if _, tracked := p.devices[path]; tracked {
		p.mu.Unlock()
		_ = f.Close()
		return
	}
	p.nextID++
	d.id = p.nextID
	p.devices[path] = d
	p.mu.Unlock()

	p.log.Info("Joystick attached",
		"path", path,
		"name", d.name,
		"axes", d.axes,
		"buttons", d.buttons)
	go d.read(p.log)
}

// detach marks a removed device. The entry stays in the map until Snapshot
// has reported the terminal phase.
func (p *Provider) detach(name string) {
	path := filepath.Join(inputDir, name)
	p.mu.Lock()
	d := p.devices[path]
	p.mu.Unlock()
	if d == nil {
		return
	}

	d.mu.Lock()
	d.gone = true
	d.mu.Unlock()
	_ = d.f.Close()
	p.log.Info("Joystick detached", "path", path, "name", d.name)
}

// watch drains the inotify stream and routes joystick create/delete
// events. udev creates the node before permissions are final, so IN_ATTRIB
// retries the attach. The fd is non-blocking; polling with a timeout keeps
// Close from stranding this goroutine.
func (p *Provider) watch() {
	buf := make([]byte, 4096)
	fds := []unix.PollFd{{Fd: int32(p.inotify), Events: unix.POLLIN}}
	for {
		select {
		case <-p.closed:
			return
		default:
		}

		ready, err := unix.Poll(fds, 500)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			p.log.Warn("Hotplug watch ended", "error", err)
			return
		}
		if ready == 0 {
			continue
		}

		n, err := unix.Read(p.inotify, buf)
		if err != nil {
			if err == unix.EINTR || err == unix.EAGAIN {
				continue
			}
			select {
			case <-p.closed:
			default:
				p.log.Warn("Hotplug watch ended", "error", err)
			}
			return
		}

		for off := 0; off+unix.SizeofInotifyEvent <= n; {
			ev := (*unix.InotifyEvent)(unsafe.Pointer(&buf[off]))
			name := cString(buf[off+unix.SizeofInotifyEvent : off+unix.SizeofInotifyEvent+int(ev.Len)])
			off += unix.SizeofInotifyEvent + int(ev.Len)

			if !isJoystick(name) {
				continue
			}
			switch {
			case ev.Mask&(unix.IN_CREATE|unix.IN_ATTRIB) != 0:
				p.attach(name)
			case ev.Mask&unix.IN_DELETE != 0:
				p.detach(name)
			}
		}
	}
}

// read folds the kernel's event stream until the device goes away.
func (d *device) read(log *slog.Logger) {
	for {
		var e Event
		if err := binary.Read(d.f, binary.LittleEndian, &e); err != nil {
			d.mu.Lock()
			d.gone = true
			d.mu.Unlock()
			log.Debug("Joystick stream ended", "path", d.path, "error", err)
			return
		}
		d.mu.Lock()
		d.acc.Fold(e)
		d.mu.Unlock()
	}
}

// identify queries name and control counts. Going through SyscallConn
// keeps the file registered with the runtime poller, so a later Close
// still interrupts the blocked reader.
func (d *device) identify() error {
	rc, err := d.f.SyscallConn()
	if err != nil {
		return err
	}
	var cerr error
	err = rc.Control(func(fd uintptr) {
		name := make([]byte, 128)
		if cerr = ioctl(fd, iocName, unsafe.Pointer(&name[0])); cerr != nil {
			cerr = fmt.Errorf("device name: %w", cerr)
			return
		}
		d.name = cString(name)
		if cerr = ioctl(fd, iocAxes, unsafe.Pointer(&d.axes)); cerr != nil {
			cerr = fmt.Errorf("axis count: %w", cerr)
			return
		}
		if cerr = ioctl(fd, iocButtons, unsafe.Pointer(&d.buttons)); cerr != nil {
			cerr = fmt.Errorf("button count: %w", cerr)
		}
	})
	if err != nil {
		return err
	}
	return cerr
}

func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
