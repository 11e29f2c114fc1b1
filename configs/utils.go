package configs

import (
	"fmt"
	"log"
	"time"

	"github.com/goccy/go-json"
)

func stamp() string {
	return time.Now().Format("15:04:05.00")
}

func DPrintf(format string, a ...interface{}) {
	if ShowDebugInfo {
		if !LogToFile {
			fmt.Printf(stamp()+" <---> "+format+"\n", a...)
		} else {
			log.Printf(stamp()+" <---> "+format+"\n", a...)
		}
	}
}

func TPrintf(format string, a ...interface{}) {
	if ShowTestInfo {
		if !LogToFile {
			fmt.Printf(stamp()+" <---> "+format+"\n", a...)
		} else {
			log.Printf(stamp()+" <---> "+format+"\n", a...)
		}
	}
}

func JToString(v interface{}) string {
	byt, _ := json.Marshal(v)
	return string(byt)
}

func JPrint(v interface{}) {
	byt, _ := json.Marshal(v)
	fmt.Println(string(byt))
}

func Assert(cond bool, msg string) bool {
	if !cond {
		panic("[ERROR] Assert error at " + msg + "\n")
	}
	return cond
}

func Warn(cond bool, msg string) bool {
	if ShowWarnings && !cond {
		if !LogToFile {
			fmt.Printf("[WARNING] :" + msg + "\n")
		} else {
			log.Printf("[WARNING] :" + msg + "\n")
		}
	}
	return cond
}

func CheckError(err error) {
	if err != nil {
		panic(err.Error())
	}
}
