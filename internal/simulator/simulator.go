// Package simulator generates synthetic HDFS cluster logs for demos and
// load testing. Batches mix routine NameNode and ResourceManager chatter
// with occasional anomalies, including multi-line stack traces.
package simulator

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// anomalyChance is the probability that a log requested with anomalies
// enabled actually is one.
const anomalyChance = 0.3

var normalPatterns = []string{
	"INFO org.apache.hadoop.hdfs.server.namenode.FSNamesystem: Roll Edit Log from %s",
	"INFO org.apache.hadoop.hdfs.server.namenode.FSEditLog: Number of transactions: %d Total time for transactions(ms): %d Number of transactions batched in Syncs: %d",
	"INFO org.apache.hadoop.hdfs.server.namenode.FSEditLog: Starting log segment at %d",
	"INFO org.apache.hadoop.util.JvmPauseMonitor: Detected pause in JVM or host machine (eg GC): pause of approximately %dms\nNo GCs detected",
	"INFO org.apache.hadoop.security.token.delegation.AbstractDelegationTokenSecretManager: Updating the current master key for generating delegation tokens",
	"INFO org.apache.hadoop.yarn.server.resourcemanager.security.RMDelegationTokenSecretManager: storing master key with keyID %d",
	"INFO org.apache.hadoop.yarn.server.resourcemanager.recovery.RMStateStore: Updating AMRMToken",
	"INFO org.apache.hadoop.yarn.server.resourcemanager.recovery.RMStateStore: Storing RMDTMasterKey.",
}

const timerTrace = `ERROR org.apache.hadoop.yarn.YarnUncaughtExceptionHandler: Thread Thread[Timer-%d,5,main] threw an Exception.
java.lang.NullPointerException
    at org.apache.hadoop.yarn.server.resourcemanager.security.RMContainerTokenSecretManager.activateNextMasterKey(RMContainerTokenSecretManager.java:146)
    at org.apache.hadoop.yarn.server.resourcemanager.security.RMContainerTokenSecretManager$NextKeyActivator.run(RMContainerTokenSecretManager.java:167)
    at java.util.TimerThread.mainLoop(Timer.java:555)
    at java.util.TimerThread.run(Timer.java:505)`

const socketReaderTrace = `INFO org.apache.hadoop.ipc.Server: Socket Reader #%d for port %d: readAndProcess from client %s:%d threw exception [java.io.IOException: Connection timed out]
java.io.IOException: Connection timed out
    at sun.nio.ch.FileDispatcherImpl.read0(Native Method)
    at sun.nio.ch.SocketDispatcher.read(SocketDispatcher.java:39)
    at sun.nio.ch.IOUtil.readIntoNativeBuffer(IOUtil.java:223)
    at sun.nio.ch.IOUtil.read(IOUtil.java:197)
    at sun.nio.ch.SocketChannelImpl.read(SocketChannelImpl.java:379)
    at org.apache.hadoop.ipc.Server.channelRead(Server.java:3270)
    at org.apache.hadoop.ipc.Server.access$2600(Server.java:137)
    at org.apache.hadoop.ipc.Server$Connection.readAndProcess(Server.java:2044)
    at org.apache.hadoop.ipc.Server$Listener.doRead(Server.java:1249)
    at org.apache.hadoop.ipc.Server$Listener$Reader.doRunLoop(Server.java:1105)
    at org.apache.hadoop.ipc.Server$Listener$Reader.run(Server.java:1076)`

var shutdownReasons = []string{
	"Connection refused",
	"Disk space is too low",
	"Network timeout",
	"Memory allocation failed",
}

// Simulator produces HDFS log lines from a private random source. Safe for
// concurrent use.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New returns a time-seeded simulator.
func New() *Simulator {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic simulator for tests.
func NewWithSeed(seed int64) *Simulator {
	return &Simulator{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
}

// Generate produces one timestamped log entry. When includeAnomaly is set,
// roughly a third of the entries are anomalous.
func (s *Simulator) Generate(includeAnomaly bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	timestamp := s.now().Format("2006-01-02 15:04:05,000")
	if includeAnomaly && s.rng.Float64() < anomalyChance {
		return timestamp + " " + s.anomaly()
	}
	return timestamp + " " + s.normal()
}

// Batch produces n log entries.
func (s *Simulator) Batch(n int, includeAnomalies bool) []string {
	logs := make([]string, n)
	for i := range logs {
		logs[i] = s.Generate(includeAnomalies)
	}
	return logs
}

func (s *Simulator) anomaly() string {
	switch s.rng.Intn(5) {
	case 0:
		return fmt.Sprintf(timerTrace, s.rng.Intn(3))
	case 1:
		port := []int{8031, 9000}[s.rng.Intn(2)]
		return fmt.Sprintf(socketReaderTrace, 1+s.rng.Intn(5), port, s.clientIP(), 30000+s.rng.Intn(30000))
	case 2:
		pause := 5000 + s.rng.Intn(15001)
		return fmt.Sprintf("WARN org.apache.hadoop.util.JvmPauseMonitor: Detected pause in JVM or host machine (eg GC): pause of approximately %dms\nNo GCs detected", pause)
	case 3:
		return fmt.Sprintf("ERROR org.apache.hadoop.hdfs.server.datanode.DataNode: IOException in block %s from datanode%d: Connection timed out", s.blockID(), 1+s.rng.Intn(5))
	default:
		reason := shutdownReasons[s.rng.Intn(len(shutdownReasons))]
		return fmt.Sprintf("FATAL org.apache.hadoop.hdfs.server.datanode.DataNode: DataNode is shutting down. Reason: %s", reason)
	}
}

func (s *Simulator) normal() string {
	pattern := normalPatterns[s.rng.Intn(len(normalPatterns))]
	switch {
	case pattern == normalPatterns[0]:
		return fmt.Sprintf(pattern, s.clientIP())
	case pattern == normalPatterns[1]:
		return fmt.Sprintf(pattern, 1+s.rng.Intn(10), 1+s.rng.Intn(5), s.rng.Intn(3))
	case pattern == normalPatterns[2]:
		return fmt.Sprintf(pattern, s.rng.Intn(100000))
	case pattern == normalPatterns[3]:
		return fmt.Sprintf(pattern, 1000+s.rng.Intn(29001))
	case pattern == normalPatterns[5]:
		return fmt.Sprintf(pattern, 1+s.rng.Intn(10))
	default:
		return pattern
	}
}

func (s *Simulator) clientIP() string {
	return fmt.Sprintf("172.18.0.%d", 2+s.rng.Intn(3))
}

func (s *Simulator) blockID() string {
	return fmt.Sprintf("blk_%d", 1000000+s.rng.Intn(9000000))
}
