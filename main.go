package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/shiena/ansicolor"
	log "github.com/sirupsen/logrus"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
)

const (
	//VERSION  版本号
	VERSION = "1.0"
)

//flag
var (
	hf bool
	cf string
)

func init() {
	flag.BoolVar(&hf, "h", false, "this help")
	flag.StringVar(&cf, "c", "conf.toml", "set config `file`")
	flag.Usage = usage
	//InitLog 初始化日志
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		ShowFullLevel:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	log.SetOutput(ansicolor.NewAnsiColorWriter(os.Stdout))
	log.SetLevel(log.DebugLevel)
}

func usage() {
	fmt.Fprintf(os.Stderr, `lotmap version: lotmap/`+VERSION+`
Usage: lotmap [-h] [-c filename]

Options:
`)
	flag.PrintDefaults()
}

//initConf 初始化配置文件
func initConf(cfgFile string) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		log.Warnf("config file(%s) not exist", cfgFile)
	}
	viper.SetConfigType("toml")
	viper.SetConfigFile(cfgFile)
	viper.AutomaticEnv() // read in environment variables that match
	err := viper.ReadInConfig()
	if err != nil {
		log.Warnf("read config file(%s) error, details: %s", viper.ConfigFileUsed(), err)
	}

	//配置默认值，如果配置内容中没有指定，就使用以下值来作为配置值
	viper.SetDefault("app.port", "8080")
	viper.SetDefault("app.ips", 30)
	viper.SetDefault("import.maxsize", 64<<20)
	viper.SetDefault("import.preview.rows", PREROWNUM)
	viper.SetDefault("import.fetch.timeout", "30s")
}

//LimitMidHandler Rate-limiter
func LimitMidHandler(lmt *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		httpError := tollbooth.LimitByRequest(lmt, c.Writer, c.Request)
		if httpError != nil {
			c.Data(httpError.StatusCode, lmt.GetMessageContentType(), []byte(httpError.Message))
			c.Abort()
		} else {
			c.Next()
		}
	}
}

//setupRouter 初始化GIN引擎并配置路由
func setupRouter() *gin.Engine {
	r := gin.Default()
	//gzip
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	//cors
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowWildcard = true
	config.AllowCredentials = true
	r.Use(cors.New(config))

	r.GET("/ping", ping)
	r.GET("/formats/", listFormats)

	imports := r.Group("/import")
	lter := tollbooth.NewLimiter(float64(viper.GetInt("app.ips")), &limiter.ExpirableOptions{DefaultExpirationTTL: time.Hour})
	imports.Use(LimitMidHandler(lter))
	{
		imports.POST("/", fileImport)
		imports.POST("/url/", urlImport)
		imports.POST("/preview/", filePreview)
	}
	return r
}

func main() {
	flag.Parse()
	if hf {
		flag.Usage()
		return
	}
	if cf == "" {
		cf = "conf.toml"
	}
	initConf(cf)
	fetchClient.Timeout = viper.GetDuration("import.fetch.timeout")

	r := setupRouter()
	r.Run(":" + viper.GetString("app.port"))
}
