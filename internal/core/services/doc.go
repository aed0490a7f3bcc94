// Package services implements the driving ports: index management,
// ingestion from the staging folder, retrieval and answering, the
// staging poller and settings. Everything outside the process is reached
// through the driven ports.
package services
