package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportMonth 导出指定月份的访问记录工作簿。
func (a *API) ExportMonth(c *gin.Context) {
	year, err := parseIntParam(c, "year")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid year")
		return
	}
	month, err := parseIntParam(c, "month")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid month")
		return
	}

	workbook, err := a.exports.MonthlyWorkbook(year, month)
	if err != nil {
		respondError(c, http.StatusBadRequest, "failed to build export")
		return
	}
	defer workbook.Close()

	buf, err := workbook.WriteToBuffer()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to write export")
		return
	}

	filename := fmt.Sprintf("visitor-log_%d_%02d.xlsx", year, month)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// MobileQRCode 输出移动端登记页地址的二维码，供门口立牌打印或展示。
func (a *API) MobileQRCode(c *gin.Context) {
	mobileURL := a.siteBaseURL + "/mobile-register"

	png, err := qrcode.Encode(mobileURL, qrcode.Medium, 256)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to render qr code")
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
