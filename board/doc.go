// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package board 实现愿景板生成流水线：一个有界的自我纠错重试循环，
配合 best-of-N 选择与增量推送的进度事件流。

# 组件

  - PromptComposer   — 由请求（及上一轮反馈）生成图像提示词，主路径走文本生成能力，
    失败时退回确定性模板，永不返回错误
  - ImageSynthesizer — 单次图像生成调用，失败以 SynthesisResult{OK:false} 返回，不做内部重试
  - QualityEvaluator — 把图像与评分细则交给视觉评估能力，从半结构化文本中解析
    SCORE / FEEDBACK / IMPROVEMENTS，调用失败时返回固定的中性结果
  - Orchestrator     — 状态机：COMPOSING → SYNTHESIZING → EVALUATING → DECIDING，
    跟踪最佳尝试，决定接受、继续或耗尽，最后交给 ArtifactSink 持久化
  - Streamer         — 把事件即时推送给调用方，保证至多一个终止事件并且一定关闭通道

# 外部能力

TextGenerator / ImageGenerator / ImageEvaluator 三个接口是测试替身的接缝，
LLMTextGenerator、ProviderImageGenerator、LLMImageEvaluator 是对应的生产适配器。

# 取消

单次运行严格串行。调用方断开后，取消在下一个阶段边界生效，
进行中的外部调用不会被中断（仅受各自超时约束）。
*/
package board
