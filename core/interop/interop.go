// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package interop implements the default SYSCALL host: runtime logging and
// notifications, a deterministic clock, contract storage and native
// contract dispatch.
package interop

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/log"
	"github.com/probechain/neo-zkvm/common"
	"github.com/probechain/neo-zkvm/core/vm"
	"github.com/probechain/neo-zkvm/core/vm/stackitem"
	"github.com/probechain/neo-zkvm/crypto"
	"github.com/probechain/neo-zkvm/storage"
)

const (
	MaxLogSize       = 1024  // bytes of a runtime log message
	MaxEventNameSize = 32    // bytes of a notification name
	MaxStorageKey    = 64    // bytes of a storage key
	MaxStorageValue  = 65535 // bytes of a storage value

	defaultPrice uint64 = 1 << 15
	timePrice    uint64 = 1 << 3
)

var (
	// ErrNoStorage is returned by the storage syscalls when the host has no
	// backend.
	ErrNoStorage = fmt.Errorf("%w: no storage backend", vm.ErrInvalidOperation)

	// ErrNoNatives is returned by CallNative when the host has no registry.
	ErrNoNatives = fmt.Errorf("%w: no native contracts", vm.ErrInvalidOperation)
)

// LogEntry is emitted by System.Runtime.Log.
type LogEntry struct {
	ScriptHash common.ScriptHash
	Message    string
}

// Notification is emitted by System.Runtime.Notify.
type Notification struct {
	ScriptHash common.ScriptHash
	Name       string
	State      *stackitem.Array
}

type syscall struct {
	name    string
	price   uint64
	handler func(h *Host, v *vm.VM) error
}

var syscalls = map[uint32]syscall{
	vm.SyscallLog:        {"System.Runtime.Log", defaultPrice, (*Host).runtimeLog},
	vm.SyscallNotify:     {"System.Runtime.Notify", defaultPrice, (*Host).runtimeNotify},
	vm.SyscallGetTime:    {"System.Runtime.GetTime", timePrice, (*Host).runtimeGetTime},
	vm.SyscallStorageGet: {"System.Storage.Get", defaultPrice, (*Host).storageGet},
	vm.SyscallStoragePut: {"System.Storage.Put", defaultPrice, (*Host).storagePut},
	vm.SyscallStorageDel: {"System.Storage.Delete", defaultPrice, (*Host).storageDelete},
	vm.SyscallCallNative: {"System.Contract.CallNative", defaultPrice, (*Host).callNative},
}

// SyscallName returns the full name of id.
func SyscallName(id uint32) (string, bool) {
	s, ok := syscalls[id]
	return s.name, ok
}

// syscallIDs indexes every syscall by its full name and by the shorter
// forms accepted by the assembler: "Storage.Get", "Log", "CallNative".
var syscallIDs = func() map[string]uint32 {
	m := make(map[string]uint32)
	for id, s := range syscalls {
		short := strings.TrimPrefix(s.name, "System.")
		m[s.name], m[short] = id, id
		if i := strings.IndexByte(short, '.'); i >= 0 && !strings.HasPrefix(short, "Storage.") {
			m[short[i+1:]] = id
		}
	}
	return m
}()

// SyscallID resolves a syscall name. The "System." prefix is optional.
func SyscallID(name string) (uint32, bool) {
	id, ok := syscallIDs[name]
	return id, ok
}

// SyscallIDs lists the known syscall ids in ascending order.
func SyscallIDs() []uint32 {
	ids := make([]uint32, 0, len(syscalls))
	for id := range syscalls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Config holds the host-supplied execution environment.
type Config struct {
	// Timestamp is the block time in milliseconds returned by GetTime.
	Timestamp uint64
}

// Host is the default vm.SyscallHost. A Host serves a single execution.
type Host struct {
	cfg      Config
	storage  storage.Backend
	natives  vm.NativeInvoker
	readOnly bool
	log      log.Logger

	logs          []LogEntry
	notifications []Notification
}

// Option configures a Host.
type Option func(*Host)

// WithStorage attaches a storage backend.
func WithStorage(b storage.Backend) Option { return func(h *Host) { h.storage = b } }

// WithReadOnlyStorage makes every storage context read-only.
func WithReadOnlyStorage() Option { return func(h *Host) { h.readOnly = true } }

// WithNatives attaches the native contract registry.
func WithNatives(n vm.NativeInvoker) Option { return func(h *Host) { h.natives = n } }

// NewHost creates a host for a single execution.
func NewHost(cfg Config, opts ...Option) *Host {
	h := &Host{cfg: cfg, log: log.New("module", "interop")}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Price implements vm.SyscallHost.
func (h *Host) Price(id uint32) (uint64, bool) {
	s, ok := syscalls[id]
	return s.price, ok
}

// Invoke implements vm.SyscallHost.
func (h *Host) Invoke(id uint32, v *vm.VM) error {
	s, ok := syscalls[id]
	if !ok {
		return fmt.Errorf("%w: %#x", vm.ErrUnknownSyscall, id)
	}
	return s.handler(h, v)
}

// Logs returns the runtime log entries in emission order.
func (h *Host) Logs() []LogEntry { return append([]LogEntry(nil), h.logs...) }

// Notifications returns the notifications in emission order.
func (h *Host) Notifications() []Notification {
	return append([]Notification(nil), h.notifications...)
}

// StorageContext returns the storage scope of the script v is executing.
func (h *Host) StorageContext(v *vm.VM) storage.StorageContext {
	return storage.StorageContext{ScriptHash: scriptHash(v), ReadOnly: h.readOnly}
}

func scriptHash(v *vm.VM) common.ScriptHash {
	return crypto.ScriptHashOf(v.Script())
}

func popBytes(v *vm.VM) ([]byte, error) {
	item, err := v.Pop()
	if err != nil {
		return nil, err
	}
	return item.TryBytes()
}

// ---- Runtime ---------------------------------------------------------------

func (h *Host) runtimeLog(v *vm.VM) error {
	msg, err := popBytes(v)
	if err != nil {
		return err
	}
	if len(msg) > MaxLogSize {
		return fmt.Errorf("%w: log message of %d bytes", vm.ErrInvalidOperation, len(msg))
	}
	if !utf8.Valid(msg) {
		return fmt.Errorf("%w: log message is not valid UTF-8", vm.ErrInvalidOperation)
	}
	entry := LogEntry{ScriptHash: scriptHash(v), Message: string(msg)}
	h.logs = append(h.logs, entry)
	h.log.Debug("Runtime log", "script", entry.ScriptHash, "msg", entry.Message)
	return nil
}

func (h *Host) runtimeNotify(v *vm.VM) error {
	item, err := v.Pop()
	if err != nil {
		return err
	}
	state, ok := item.(*stackitem.Array)
	if !ok {
		return fmt.Errorf("%w: notification state is %s", vm.ErrInvalidType, item.Type())
	}
	name, err := popBytes(v)
	if err != nil {
		return err
	}
	if len(name) > MaxEventNameSize {
		return fmt.Errorf("%w: event name of %d bytes", vm.ErrInvalidOperation, len(name))
	}
	// The recorded state is a detached copy; the script may keep mutating
	// the array it notified with.
	data, err := stackitem.Serialize(state)
	if err != nil {
		return err
	}
	snapshot, err := stackitem.Deserialize(data)
	if err != nil {
		return err
	}
	h.notifications = append(h.notifications, Notification{
		ScriptHash: scriptHash(v),
		Name:       string(name),
		State:      snapshot.(*stackitem.Array),
	})
	return nil
}

func (h *Host) runtimeGetTime(v *vm.VM) error {
	t, err := stackitem.NewIntFromBig(new(big.Int).SetUint64(h.cfg.Timestamp))
	if err != nil {
		return err
	}
	return v.Push(t)
}

// ---- Storage ---------------------------------------------------------------

func (h *Host) popKey(v *vm.VM) ([]byte, error) {
	key, err := popBytes(v)
	if err != nil {
		return nil, err
	}
	if len(key) > MaxStorageKey {
		return nil, fmt.Errorf("%w: storage key of %d bytes", vm.ErrInvalidOperation, len(key))
	}
	return key, nil
}

func (h *Host) storageGet(v *vm.VM) error {
	if h.storage == nil {
		return ErrNoStorage
	}
	key, err := h.popKey(v)
	if err != nil {
		return err
	}
	value, ok, err := h.storage.Get(h.StorageContext(v), key)
	if err != nil {
		return err
	}
	if !ok {
		return v.Push(stackitem.Null{})
	}
	return v.Push(stackitem.ByteString(value))
}

func (h *Host) storagePut(v *vm.VM) error {
	if h.storage == nil {
		return ErrNoStorage
	}
	value, err := popBytes(v)
	if err != nil {
		return err
	}
	if len(value) > MaxStorageValue {
		return fmt.Errorf("%w: storage value of %d bytes", vm.ErrInvalidOperation, len(value))
	}
	key, err := h.popKey(v)
	if err != nil {
		return err
	}
	return h.storage.Put(h.StorageContext(v), key, value)
}

func (h *Host) storageDelete(v *vm.VM) error {
	if h.storage == nil {
		return ErrNoStorage
	}
	key, err := h.popKey(v)
	if err != nil {
		return err
	}
	return h.storage.Delete(h.StorageContext(v), key)
}

// ---- Native contracts ------------------------------------------------------

func (h *Host) callNative(v *vm.VM) error {
	if h.natives == nil {
		return ErrNoNatives
	}
	hash, err := popBytes(v)
	if err != nil {
		return err
	}
	if len(hash) != common.ScriptHashLength {
		return fmt.Errorf("%w: contract hash of %d bytes", vm.ErrInvalidOperation, len(hash))
	}
	method, err := popBytes(v)
	if err != nil {
		return err
	}
	item, err := v.Pop()
	if err != nil {
		return err
	}
	args, ok := item.(*stackitem.Array)
	if !ok {
		return fmt.Errorf("%w: native arguments are %s", vm.ErrInvalidType, item.Type())
	}
	result, err := h.natives.Invoke(common.BytesToScriptHash(hash), string(method), args.Items())
	if err != nil {
		return err
	}
	return v.Push(result)
}
