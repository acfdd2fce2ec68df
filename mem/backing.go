package mem

import (
	"errors"
)

// ErrOutOfCapacity is returned when a backing store is accessed beyond its
// capacity.
var ErrOutOfCapacity = errors.New("accessing address beyond the storage capacity")

const backingUnitSize = 4096

// A BackingStore keeps the data of the simulated memory.
//
// The data is managed in units, similar to pages. Units that have never been
// touched are not allocated and read as zeros.
type BackingStore struct {
	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewBackingStore creates a backing store with the given capacity in bytes.
func NewBackingStore(capacity uint64) *BackingStore {
	return &BackingStore{
		unitSize: backingUnitSize,
		capacity: capacity,
		data:     make(map[uint64][]byte),
	}
}

// Capacity returns the number of addressable bytes.
func (s *BackingStore) Capacity() uint64 {
	return s.capacity
}

func (s *BackingStore) mustBeInRange(address, length uint64) error {
	if address >= s.capacity || length > s.capacity-address {
		return ErrOutOfCapacity
	}

	return nil
}

func (s *BackingStore) unit(baseAddr uint64, create bool) []byte {
	unit, ok := s.data[baseAddr]
	if !ok && create {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *BackingStore) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

// Read copies len(dst) bytes starting at address into dst.
func (s *BackingStore) Read(address uint64, dst []byte) error {
	length := uint64(len(dst))
	if err := s.mustBeInRange(address, length); err != nil {
		return err
	}

	offset := uint64(0)
	for offset < length {
		baseAddr, inUnitAddr := s.parseAddress(address + offset)
		n := min(length-offset, s.unitSize-inUnitAddr)

		unit := s.unit(baseAddr, false)
		if unit == nil {
			clear(dst[offset : offset+n])
		} else {
			copy(dst[offset:offset+n], unit[inUnitAddr:inUnitAddr+n])
		}

		offset += n
	}

	return nil
}

// Write stores data starting at address.
func (s *BackingStore) Write(address uint64, data []byte) error {
	length := uint64(len(data))
	if err := s.mustBeInRange(address, length); err != nil {
		return err
	}

	offset := uint64(0)
	for offset < length {
		baseAddr, inUnitAddr := s.parseAddress(address + offset)
		n := min(length-offset, s.unitSize-inUnitAddr)

		unit := s.unit(baseAddr, true)
		copy(unit[inUnitAddr:inUnitAddr+n], data[offset:offset+n])

		offset += n
	}

	return nil
}
