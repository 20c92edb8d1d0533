// Package kestrel provides an anomaly detection engine for Hadoop and
// HDFS logs. Raw log blobs are split into logical entries, scored for
// severity, and matched against known HDFS failure patterns.
//
// Quick start:
//
//	k, err := kestrel.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer k.Close()
//
//	anomalies := k.Process(ctx, logBlob)
//	for _, a := range anomalies {
//	    fmt.Println(a.Category, a.Score)
//	}
//
// The Kestrel instance is safe for concurrent use. Create once, reuse
// across requests.
package kestrel
