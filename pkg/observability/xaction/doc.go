// Package xaction 提供轮转动作流水线：重命名、压缩、按条件删除。
//
// 所有动作实现 [Action]：
//
//	Execute(ctx) (bool, error)
//
// bool 表示动作是否真正生效（源文件不存在时返回 false 且无错误），
// error 表示执行失败。动作错误由执行器上报到状态通道，不会传回写入方。
//
// # 压缩
//
// [Compress] 先写入 "<目标>.tmp"，编码器成功关闭后再重命名为目标文件，
// 最后删除源文件。任何一步失败都会清理 .tmp 并保留源文件。
// 编码器通过 [Registry] 按扩展名查找，默认注册：
//
//	.gz .zip .deflate .bz2 .xz .zst .lz4 .sz
//
// # 删除
//
// [Delete] 在 BasePath 下按深度遍历文件，按 [PathSorter] 排序（默认最新在前）后
// 逐个评估 [PathCondition]，全部接受的文件被删除。累计条件
// （[IfAccumulatedFileSize]、[IfAccumulatedFileCount]）依赖排序顺序，
// 每次遍历前通过 BeforeFileTreeWalk 重置。
package xaction
