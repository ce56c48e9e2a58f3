package ipc

import (
	"encoding/binary"
	"net"
	"strconv"

	"go.trai.ch/zerr"
)

// RequestBuild implements the client half of spec §4.8: dial the server
// named by socketPath, post jobID (-1 if the caller has none) and
// targets, and block for the one-byte reply. The returned bool mirrors
// the byte read: true for success, false for failure, matching the exit
// code a client process (run_mode == client) reports to its parent
// shell.
func RequestBuild(socketPath string, jobID int, targets []string) (bool, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return false, zerr.Wrap(err, "failed to connect to build server")
	}
	defer conn.Close()

	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], uint32(int32(jobID)))
	if _, err := conn.Write(raw[:]); err != nil {
		return false, zerr.Wrap(err, "failed to write job id")
	}

	for _, t := range targets {
		if _, err := conn.Write(append([]byte(t), 0)); err != nil {
			return false, zerr.Wrap(err, "failed to write target")
		}
	}
	if _, err := conn.Write([]byte{0}); err != nil {
		return false, zerr.Wrap(err, "failed to write terminator")
	}

	var reply [1]byte
	if _, err := conn.Read(reply[:]); err != nil {
		return false, zerr.Wrap(err, "failed to read reply")
	}
	return reply[0] == 1, nil
}

// JobIDFromEnv parses REMAKE_JOB_ID from raw (the environment variable
// value), returning -1 when unset or malformed, spec §4.8's "no job"
// sentinel for a bare client invocation outside any running script.
func JobIDFromEnv(raw string) int {
	if raw == "" {
		return -1
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return id
}
