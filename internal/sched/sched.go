// 包 sched：单线程协作式调度抽象
// 背景：地图交互的时序依赖两种延迟原语："下一帧执行一次"与"推迟到下一个调度点"；
// 这里把它们抽象出来，生产环境由 Loop 驱动，测试由 Manual 逐步推进。
package sched

// FrameID：帧请求句柄，0 表示无效
type FrameID uint64

// Scheduler：所有回调都在同一逻辑线程上串行执行
type Scheduler interface {
	// Post：把 fn 排到当前任务之后执行（FIFO）；从不阻塞，可在调度协程自身上调用
	Post(fn func())
	// RequestFrame：在下一帧执行 fn 一次
	RequestFrame(fn func()) FrameID
	// CancelFrame：取消尚未执行的帧请求；已执行或未知 id 忽略
	CancelFrame(id FrameID)
}
