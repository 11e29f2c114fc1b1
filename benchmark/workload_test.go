package benchmark

import (
	"testing"
	"time"

	"branchstore/configs"
)

func TestPurchaseWorkloadSmoke(t *testing.T) {
	buf := []interface{}{configs.BenchCustomerCount, configs.BenchArticleCount,
		configs.ClientRoutineNumber, configs.WarmUpTime, configs.RunTestInterval}
	defer func() {
		configs.BenchCustomerCount = buf[0].(int)
		configs.BenchArticleCount = buf[1].(int)
		configs.ClientRoutineNumber = buf[2].(int)
		configs.WarmUpTime = buf[3].(time.Duration)
		configs.RunTestInterval = buf[4].(time.Duration)
	}()
	configs.BenchCustomerCount = 4
	configs.BenchArticleCount = 8
	configs.ClientRoutineNumber = 2
	configs.WarmUpTime = 100 * time.Millisecond
	configs.RunTestInterval = 500 * time.Millisecond

	st := Stmt{}
	st.PurchaseTest(3, 6300)
	st.Stop()
}
