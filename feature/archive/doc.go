// Package archive keeps a history of run summaries and daily reports in
// object storage. Documents are JSON and laid out by day:
//
//	runs/2025/06/01/run-20250601T080000Z.json
//	reports/2025/06/01/daily-2025-06-01.json
package archive
