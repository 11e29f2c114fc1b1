package benchmark

// RunLocal is the command-line entry for the loopback benchmark.
func RunLocal(nodeCount, basePort int) {
	st := Stmt{}
	st.PurchaseTest(nodeCount, basePort)
	st.Stop()
}
