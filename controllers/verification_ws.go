package controller

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/websocket/v2"

	"verimail/models"
	"verimail/store"
)

// JobProgressStream pushes the persisted progress counters of a job over a
// websocket until the job completes. The counters come from the job store,
// so the stream shows exactly what a crash-recovered reader would see.
func JobProgressStream(jobs store.JobStore) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		workspaceID, ok := c.Locals("workspace_id").(uint)
		if !ok {
			return
		}
		jobID, err := strconv.ParseUint(c.Params("id"), 10, 32)
		if err != nil {
			return
		}

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			job, err := jobs.GetJob(context.Background(), workspaceID, uint(jobID))
			if err != nil {
				log.Printf("progress stream: job %d lookup failed: %v", jobID, err)
				return
			}

			update := struct {
				Status    models.JobStatus `json:"status"`
				Total     int              `json:"total_count"`
				Processed int              `json:"processed_count"`
				Valid     int              `json:"valid_count"`
				Invalid   int              `json:"invalid_count"`
				Risky     int              `json:"risky_count"`
				CatchAll  int              `json:"catch_all_count"`
				Unknown   int              `json:"unknown_count"`
			}{
				Status:    job.Status,
				Total:     job.TotalCount,
				Processed: job.ProcessedCount,
				Valid:     job.ValidCount,
				Invalid:   job.InvalidCount,
				Risky:     job.RiskyCount,
				CatchAll:  job.CatchAllCount,
				Unknown:   job.UnknownCount,
			}

			if err := c.WriteJSON(update); err != nil {
				return
			}
			if job.Status == models.JobStatusCompleted {
				return
			}
		}
	}
}
