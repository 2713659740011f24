package helper

import (
	"encoding/json"
	"net/http"
)

// Result Result
type Result struct {
	Status bool        `json:"status"`
	Msg    string      `json:"msg"`
	Data   interface{} `json:"data"`
}

func writeResult(w http.ResponseWriter, result *Result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	_ = json.NewEncoder(w).Encode(result)
}

// ReturnError 返回错误信息
func ReturnError(w http.ResponseWriter, msg string) {
	writeResult(w, &Result{Status: false, Msg: msg})
}

// ReturnErrorData 返回错误信息及附加数据，例如表单字段校验结果
func ReturnErrorData(w http.ResponseWriter, msg string, data interface{}) {
	writeResult(w, &Result{Status: false, Msg: msg, Data: data})
}

// ReturnSuccess 返回成功信息
func ReturnSuccess(w http.ResponseWriter, msg string, data interface{}) {
	writeResult(w, &Result{Status: true, Msg: msg, Data: data})
}
