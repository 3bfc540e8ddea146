//go:build linux

package shm

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"unsafe"

	sysv "github.com/gen2brain/shm"
	"golang.org/x/sys/unix"
)

// SysV semaphore plumbing that x/sys/unix does not wrap.
const (
	semMutex = 0 // binary semaphore guarding the frame data
	semCond  = 1 // counting semaphore posted by the producer per frame

	semUndo   = 0x1000
	semGetVal = 12

	tokenID = 'v'
)

type sembuf struct {
	num uint16
	op  int16
	flg int16
}

// Area is an attached shared memory frame region. A single consumer
// uses it from one goroutine; Wait, Lock and Unlock follow the
// producer's two-semaphore protocol under the same IPC key.
type Area struct {
	name  string
	geo   Geometry
	data  []byte
	shmID int
	semID int
	valid atomic.Bool
}

// Attach looks up the region by name and maps it. The producer must
// have created both the segment and its semaphore set already.
func Attach(name string, geo Geometry) (*Area, error) {
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join("/tmp", name)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("shm: no token file for %q: %w", name, err)
	}
	key, err := ftok(path, tokenID)
	if err != nil {
		return nil, fmt.Errorf("shm: %w", err)
	}

	shmID, err := sysv.Get(key, geo.Size(), 0)
	if err != nil {
		return nil, fmt.Errorf("shm: attach %q (%d bytes): %w", name, geo.Size(), err)
	}
	data, err := sysv.At(shmID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: map %q: %w", name, err)
	}
	semID, err := semget(key, 2, 0)
	if err != nil {
		_ = sysv.Dt(data)
		return nil, fmt.Errorf("shm: semaphores for %q: %w", name, err)
	}

	a := &Area{name: name, geo: geo, data: data, shmID: shmID, semID: semID}
	a.valid.Store(true)
	return a, nil
}

func (a *Area) Name() string { return a.name }
func (a *Area) Size() int    { return len(a.data) }
func (a *Area) Data() []byte { return a.data }

// Valid reports whether the region can still be used. It turns false
// once the producer removed the IPC objects.
func (a *Area) Valid() bool {
	if !a.valid.Load() {
		return false
	}
	if _, err := semctl(a.semID, semCond, semGetVal); err != nil {
		a.valid.Store(false)
	}
	return a.valid.Load()
}

// Wait blocks until the producer signals a new frame. It returns false
// when the region became invalid instead of a frame arriving.
func (a *Area) Wait() bool {
	if !a.valid.Load() {
		return false
	}
	for {
		err := semop(a.semID, []sembuf{{num: semCond, op: -1}})
		if err == nil {
			return true
		}
		if err == unix.EINTR {
			continue
		}
		// EIDRM or EINVAL: the producer tore the set down.
		a.valid.Store(false)
		return false
	}
}

// Lock takes the region mutex for the duration of a read. The producer
// is blocked from writing a new frame until Unlock.
func (a *Area) Lock() {
	for {
		err := semop(a.semID, []sembuf{{num: semMutex, op: -1, flg: semUndo}})
		if err == nil || err != unix.EINTR {
			return
		}
	}
}

// Unlock releases the region mutex.
func (a *Area) Unlock() {
	_ = semop(a.semID, []sembuf{{num: semMutex, op: 1, flg: semUndo}})
}

// Detach unmaps the region. The underlying IPC objects stay, they
// belong to the producer.
func (a *Area) Detach() error {
	a.valid.Store(false)
	return sysv.Dt(a.data)
}

// ftok derives the IPC key for a token path the same way ftok(3) does.
func ftok(path string, id byte) (int, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return 0, fmt.Errorf("stat token %q: %w", path, err)
	}
	key := int(uint32(id)<<24 | uint32(st.Dev&0xff)<<16 | uint32(st.Ino&0xffff))
	return key, nil
}

func semget(key, nsems, flg int) (int, error) {
	id, _, errno := unix.Syscall(unix.SYS_SEMGET, uintptr(key), uintptr(nsems), uintptr(flg))
	if errno != 0 {
		return 0, errno
	}
	return int(id), nil
}

func semop(id int, ops []sembuf) error {
	_, _, errno := unix.Syscall(unix.SYS_SEMOP, uintptr(id), uintptr(unsafe.Pointer(&ops[0])), uintptr(len(ops)))
	if errno != 0 {
		return errno
	}
	return nil
}

func semctl(id, num, cmd int) (int, error) {
	val, _, errno := unix.Syscall6(unix.SYS_SEMCTL, uintptr(id), uintptr(num), uintptr(cmd), 0, 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return int(val), nil
}
