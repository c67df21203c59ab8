package main

import (
	"fmt"
	"io/ioutil"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/teris-io/shortid"
)

func ping(c *gin.Context) {
	res := NewRes()
	dt := time.Now().Format("2006-01-02 15:04:05")
	res.DoneData(c, gin.H{
		"status": fmt.Sprintf(`%s → living ~`, dt),
	})
}

//listFormats 支持的格式列表
func listFormats(c *gin.Context) {
	res := NewRes()
	res.DoneData(c, gin.H{
		"formats": formatRegistry,
		"accept":  ListAcceptedExtensions(),
	})
}

//fileImport 导入上传文件, one result per request; batch callers loop
func fileImport(c *gin.Context) {
	res := NewRes()
	file, err := c.FormFile("file")
	if err != nil {
		log.Errorf(`fileImport, gin form file error, details: %s`, err)
		res.Fail(c, 4048)
		return
	}
	if maxsize := viper.GetInt64("import.maxsize"); maxsize > 0 && file.Size > maxsize {
		res.Fail(c, 4049)
		return
	}
	f, err := file.Open()
	if err != nil {
		log.Errorf(`fileImport, opening upload error, details: %s`, err)
		res.Fail(c, 5002)
		return
	}
	defer f.Close()
	data, err := ioutil.ReadAll(f)
	if err != nil {
		log.Errorf(`fileImport, reading upload error, details: %s`, err)
		res.Fail(c, 5003)
		return
	}

	opts := &ImportOptions{
		LatColumn: c.PostForm("lat"),
		LngColumn: c.PostForm("lng"),
		Encoding:  c.PostForm("encoding"),
	}
	id, _ := shortid.Generate()
	result := ImportFile(file.Filename, data, opts)
	res.DoneData(c, gin.H{
		"id":     id,
		"import": result,
	})
}

//urlImport 导入远程文件
func urlImport(c *gin.Context) {
	res := NewRes()
	var body struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		res.Fail(c, 4001)
		return
	}
	id, _ := shortid.Generate()
	result := ImportFromURL(body.URL)
	res.DoneData(c, gin.H{
		"id":     id,
		"import": result,
	})
}

//filePreview 数据预览, csv only
func filePreview(c *gin.Context) {
	res := NewRes()
	file, err := c.FormFile("file")
	if err != nil {
		log.Errorf(`filePreview, gin form file error, details: %s`, err)
		res.Fail(c, 4048)
		return
	}
	if DetectFormat(file.Filename) != CSV {
		res.Fail(c, 4045)
		return
	}
	f, err := file.Open()
	if err != nil {
		res.Fail(c, 5002)
		return
	}
	defer f.Close()
	data, err := ioutil.ReadAll(f)
	if err != nil {
		res.Fail(c, 5003)
		return
	}
	preview, err := PreviewCSV(data, c.PostForm("encoding"), viper.GetInt("import.preview.rows"))
	if err != nil {
		res.FailMsg(c, err.Error())
		return
	}
	res.DoneData(c, preview)
}
