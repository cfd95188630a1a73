package main

/*
static unsigned long long trap_then_read_rsi(void) {
	unsigned long long v;
	__asm__ __volatile__("int3\n\tmovq %%rsi, %0" : "=r"(v));
	return v;
}

static unsigned long long trap_then_read_mm0(void) {
	unsigned long long v;
	__asm__ __volatile__("int3\n\tmovq %%mm0, %0" : "=r"(v));
	return v;
}

static double trap_then_read_xmm0(void) {
	double v;
	__asm__ __volatile__("int3\n\tmovsd %%xmm0, %0" : "=x"(v));
	return v;
}

static double trap_then_read_st0(void) {
	long double v;
	__asm__ __volatile__("int3\n\tfstpt %0\n\tfldt %0" : "=m"(v));
	return (double)v;
}
*/
import "C"

import "fmt"

// reg_write is the target half of the register-write tests. Each
// trap_then_read_X function traps itself (INT3) and, as the very next
// instruction once resumed, moves the corresponding register into the
// value it's about to return -- nothing else runs in between, so
// whatever the debugger poked in while the process was stopped is
// exactly what gets read back and printed.
func main() {
	fmt.Printf("0x%x", uint64(C.trap_then_read_rsi()))
	fmt.Printf("0x%x", uint64(C.trap_then_read_mm0()))
	fmt.Printf("%.2f", float64(C.trap_then_read_xmm0()))
	fmt.Printf("%.2f", float64(C.trap_then_read_st0()))
}
