package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/vservices/ms-vservices-bankussd/auditdb"
	"bitbucket.org/vservices/ms-vservices-bankussd/bank"
	"bitbucket.org/vservices/ms-vservices-bankussd/menus"
	"bitbucket.org/vservices/ms-vservices-bankussd/sessions"
	"bitbucket.org/vservices/ms-vservices-bankussd/ussd"
	"bitbucket.org/vservices/utils/v4/logger"
	datatype "bitbucket.org/vservices/utils/v4/type"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/spf13/viper"
)

var log = logger.NewLogger()

func main() {
	configFile := flag.String("config", "config.yml", "Service configuration file")
	flag.Parse()

	viper.SetConfigFile(*configFile)
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Sprintf("cannot read config %s: %+v", *configFile, err))
	}
	viper.SetDefault("address", ":8080")

	rdb := redis.NewClient(&redis.Options{
		Addr:     viper.GetString("redis.addr"),
		Password: viper.GetString("redis.password"),
		DB:       viper.GetInt("redis.database"),
	})

	store, err := sessions.NewRedis(sessions.RedisConfig{
		Addr:       viper.GetString("redis.addr"),
		Password:   datatype.EncStr(viper.GetString("redis.password")),
		Database:   viper.GetInt("redis.database"),
		SessionTTL: datatype.Duration(viper.GetDuration("session_ttl")),
		LockTTL:    datatype.Duration(viper.GetDuration("lock_ttl")),
	}, rdb)
	if err != nil {
		panic(fmt.Sprintf("cannot create session store: %+v", err))
	}

	gw, err := bank.New(bank.Config{
		Url:      viper.GetString("bank.url"),
		Timeout:  datatype.Duration(viper.GetDuration("bank.timeout")),
		DeviceID: viper.GetString("bank.device_id"),
		BankID:   viper.GetString("bank.bank_id"),
		Country:  viper.GetString("bank.country"),
		Source:   viper.GetString("bank.source"),
	})
	if err != nil {
		panic(fmt.Sprintf("cannot create bank gateway: %+v", err))
	}

	cacheTTL := viper.GetDuration("customer_cache_ttl")
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	customers := bank.NewCustomers(gw, rdb, cacheTTL)

	audit := auditdb.Nop()
	if viper.GetBool("audit.enabled") {
		db, err := auditdb.Connect(auditdb.DatabaseConfig{
			Host:     viper.GetString("audit.host"),
			Port:     viper.GetInt("audit.port"),
			Username: viper.GetString("audit.username"),
			Password: viper.GetString("audit.password"),
			Database: viper.GetString("audit.database"),
		})
		if err != nil {
			panic(fmt.Sprintf("cannot connect audit db: %+v", err))
		}
		audit = db
	}

	svc := menus.New(gw, customers, audit)
	machine := ussd.NewMachine(ussd.NewManager(store), svc.Tree(), customers)
	svc.Register(machine)

	h := handler{machine: machine, locker: store}
	router := mux.NewRouter()
	router.HandleFunc("/ussd", h.handleUSSD).Methods(http.MethodPost)
	router.HandleFunc("/status", handleStatus).Methods(http.MethodGet)

	addr := viper.GetString("address")
	log.Infof("listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		panic(fmt.Sprintf("failed to serve on %s: %+v", addr, err))
	}
}

type handler struct {
	machine *ussd.Machine
	locker  ussd.Locker
}

//handleUSSD() answers one telco keystroke
//the telco expects a USSD text body as the contract of correctness, so
//every path writes "CON ..." or "END ...", never a bare HTTP error
func (h handler) handleUSSD(httpRes http.ResponseWriter, httpReq *http.Request) {
	if err := httpReq.ParseForm(); err != nil {
		writeReply(httpRes, ussd.Reply{Text: ussd.MsgSystemError})
		return
	}
	req := &ussd.Request{
		SessionID: httpReq.FormValue("sessionId"),
		Msisdn:    httpReq.FormValue("msisdn"),
		Channel:   httpReq.FormValue("serviceCode"),
		Input:     httpReq.FormValue("text"),
	}
	if req.SessionID == "" || req.Msisdn == "" {
		writeReply(httpRes, ussd.Reply{Text: ussd.MsgSystemError})
		return
	}

	//advisory lock fails safe under duplicate/retried telco deliveries:
	//the duplicate gets a terminal retry message instead of racing the
	//first delivery's read-modify-write
	if h.locker != nil {
		ok, err := h.locker.Lock(httpReq.Context(), req.SessionID)
		if err == nil && !ok {
			writeReply(httpRes, ussd.Reply{Text: "Request in progress. Please try again."})
			return
		}
		if err == nil {
			defer h.locker.Unlock(httpReq.Context(), req.SessionID)
		}
		//a lock error is not fatal: fall through to last-writer-wins
	}

	reply := h.machine.Dispatch(httpReq.Context(), req)
	writeReply(httpRes, reply)
}

func writeReply(httpRes http.ResponseWriter, reply ussd.Reply) {
	prefix := "END "
	if reply.Continues {
		prefix = "CON "
	}
	httpRes.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(httpRes, "%s%s", prefix, reply.Text)
}

func handleStatus(httpRes http.ResponseWriter, httpReq *http.Request) {
	httpRes.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(httpRes, "OK")
}
