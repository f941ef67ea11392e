package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	statusOK = "ok"

	uploadField   = "file"
	maxUploadSize = 32 << 20 // 32 MB
)

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Upload a telemetry dataset
// @Description  Accepts .csv or .xlsx. Cells that fail to parse are listed in issues; their rows are kept.
// @Tags         datasets
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "Telemetry spreadsheet"
// @Success      201   {object}  service.DatasetImport
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/datasets [post]
// @Security     BearerAuth
func (h *Handler) uploadDataset(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)
	fh, err := c.FormFile(uploadField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field \"" + uploadField + "\": " + err.Error()})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.respondError(c, "dataset_open_failed", err, "file", fh.Filename)
		return
	}
	defer func() { _ = f.Close() }()

	out, err := h.services.ImportDataset(c.Request.Context(), fh.Filename, f)
	if err != nil {
		h.respondError(c, "dataset_import_failed", err, "file", fh.Filename)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// @Summary      List datasets
// @Tags         datasets
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, datasets"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/datasets [get]
// @Security     BearerAuth
func (h *Handler) listDatasets(c *gin.Context) {
	list, err := h.services.ListDatasets(c.Request.Context())
	if err != nil {
		h.respondError(c, "dataset_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(list),
		"datasets": list,
	})
}
