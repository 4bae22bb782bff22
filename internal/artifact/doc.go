// 版权所有 2026 VisionBoard Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 artifact 实现愿景板产物的持久化，是 board.ArtifactSink 的生产实现。

# 组成

  - BlobStore：图像字节的存储后端。FilesystemStore 写本地目录，
    MinioStore 写 S3 兼容对象存储（minio-go）。
  - RecordStore：产物元数据（请求号、目标、分数、尝试次数、定位符）
    的 GORM 存储，支持 sqlite / postgres / mysql。
  - Sink：先写图像再写记录，返回对象定位符。

定位符格式：文件系统为 file://<绝对路径>，对象存储为 s3://<bucket>/<key>。
*/
package artifact
