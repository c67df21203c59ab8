package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

//MsgList status messages list
var MsgList = map[int]string{
	0: "ok",

	200: "成功",

	400:  "请求无法解析",
	4001: "必填参数校验错误",
	4045: "不支持的数据格式",
	4048: "找不到上传文件",
	4049: "文件超过大小限制",

	500:  "系统错误",
	5002: "文件读写错误",
	5003: "IO读写错误",
	5004: "数据导入错误",
}

//Res response schema
type Res struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Results interface{} `json:"results"`
}

//NewRes Create Res
func NewRes() *Res {
	return &Res{
		Status:  0,
		Message: MsgList[0],
	}
}

//Fail failed error
func (res *Res) Fail(c *gin.Context, code int) {
	res.Status = code
	res.Message = MsgList[code]
	c.JSON(http.StatusOK, res)
}

//FailMsg failed string
func (res *Res) FailMsg(c *gin.Context, msg string) {
	res.Status = -1
	res.Message = msg
	c.JSON(http.StatusOK, res)
}

//Done done
func (res *Res) Done(c *gin.Context, msg string) {
	res.Status = 0
	res.Message = MsgList[0]
	if msg != "" {
		res.Message = msg
	}
	c.JSON(http.StatusOK, res)
}

//DoneData done
func (res *Res) DoneData(c *gin.Context, data interface{}) {
	res.Status = 0
	res.Message = MsgList[0]
	res.Results = data
	c.JSON(http.StatusOK, res)
}
