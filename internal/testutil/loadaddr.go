package testutil

import (
	"bufio"
	"debug/elf"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// SymbolFileAddress returns the file-relative address (the ELF symbol
// table value) of the first symbol in path named name, for use as the
// fileAddr argument to ResolveRuntimeAddress.
func SymbolFileAddress(path, name string) (uint64, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	syms, err := f.Symbols()
	if err != nil {
		return 0, err
	}
	for _, sym := range syms {
		if sym.Name == name {
			return sym.Value, nil
		}
	}
	return 0, fmt.Errorf("symbol %s not found in %s", name, path)
}

// LoadAddress resolves a file-relative address (e.g. a symbol's
// st_value) in the binary running as pid to its runtime virtual
// address, by reading /proc/pid/maps for the first executable mapping
// listed and taking its start address minus its file offset as the
// load bias. The mapping's path is not checked.
func LoadAddress(pid int, fileOffset uint64) (uint64, error) {
	f, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var lowRange uint64
	var mapOffset uint64
	found := false
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) < 5 {
			continue
		}
		perms := fields[1]
		if !strings.Contains(perms, "x") {
			continue
		}
		addrRange := strings.SplitN(fields[0], "-", 2)
		if len(addrRange) != 2 {
			continue
		}
		lowRange, err = strconv.ParseUint(addrRange[0], 16, 64)
		if err != nil {
			continue
		}
		mapOffset, err = strconv.ParseUint(fields[2], 16, 64)
		if err != nil {
			continue
		}
		found = true
		break
	}
	if !found {
		return 0, fmt.Errorf("no executable mapping found for pid %d", pid)
	}

	loadBias := lowRange - mapOffset
	return loadBias + fileOffset, nil
}

// ResolveRuntimeAddress resolves a symbol's file address in the ELF at
// path to its runtime virtual address in the process running as pid.
// For a fixed-address (ET_EXEC) binary the file address already is the
// runtime address; for a position-independent (ET_DYN) one it's
// combined with the load bias via LoadAddress.
func ResolveRuntimeAddress(path string, pid int, fileAddr uint64) (uint64, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if f.Type != elf.ET_DYN {
		return fileAddr, nil
	}
	return LoadAddress(pid, fileAddr)
}
