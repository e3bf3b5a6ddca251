package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/voyager/internal/jobs"
	"github.com/mohammad-safakhou/voyager/models"
	"github.com/mohammad-safakhou/voyager/provider"
)

const summarySystem = "You are a travel assistant. Use only basic markdown formatting in your reply so it can be easily parsed by the frontend."

// SearchHandler exposes the job orchestration boundary: submit a search,
// poll its status, and (for completed jobs) ask for a prose brief.
type SearchHandler struct {
	Dispatcher *jobs.Dispatcher
	LLM        provider.Provider
	Logger     *log.Logger
}

func (h *SearchHandler) Register(g *echo.Group) {
	g.POST("/search/flights", h.searchFlights)
	g.POST("/search/hotels", h.searchHotels)
	g.GET("/jobs/:id", h.jobStatus)
	g.GET("/jobs/:id/summary", h.jobSummary)
}

func (h *SearchHandler) searchFlights(c echo.Context) error {
	var q models.FlightQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := h.Dispatcher.SubmitFlightSearch(c.Request().Context(), q)
	return h.submitted(c, id, err)
}

func (h *SearchHandler) searchHotels(c echo.Context) error {
	var q models.HotelQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id, err := h.Dispatcher.SubmitHotelSearch(c.Request().Context(), q)
	return h.submitted(c, id, err)
}

func (h *SearchHandler) submitted(c echo.Context, id string, err error) error {
	if err != nil {
		var verr *jobs.ValidationError
		if errors.As(err, &verr) {
			return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"job_id": id,
		"status": string(models.JobStatusPending),
	})
}

func (h *SearchHandler) jobStatus(c echo.Context) error {
	job, err := h.Dispatcher.GetJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, job)
}

// jobSummary asks the LLM for a prose brief of a completed job's results.
func (h *SearchHandler) jobSummary(c echo.Context) error {
	job, err := h.Dispatcher.GetJob(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrJobNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "job not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	switch job.Status {
	case models.JobStatusPending, models.JobStatusProcessing:
		return echo.NewHTTPError(http.StatusConflict, "job not finished yet")
	case models.JobStatusFailed:
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "job failed: "+job.Error)
	case models.JobStatusCompleted:
	}

	prompt := fmt.Sprintf(`Summarize the following %s results, including the total price for the duration of the stay, and give me a nicely formatted output:

%s

Note: the price of a flight is the maximum of the two prices listed, NOT the combined price.`, job.Kind, string(job.Result))

	summary, err := h.LLM.Complete(c.Request().Context(), summarySystem, prompt)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"job_id":  job.ID,
		"summary": summary,
	})
}
